// Package feed implements tweet creation, the follow operation and
// fan-out-on-read timelines on top of the store repositories.
package feed

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"example.com/tweetfeed/internal/apperr"
	appkafka "example.com/tweetfeed/internal/broker"
	"example.com/tweetfeed/internal/ident"
	"example.com/tweetfeed/internal/logger"
	"example.com/tweetfeed/internal/metrics"
	"example.com/tweetfeed/internal/models"
	"example.com/tweetfeed/internal/store"
)

var logg = logger.New()

const DefaultMaxTweetLength = 280

// publishTimeout bounds an event write once the request is done with it.
const publishTimeout = 10 * time.Second

var (
	ErrUserNotFound       = apperr.New(apperr.NotFound, "User not found")
	ErrFollowUserNotFound = apperr.New(apperr.NotFound, "User or current user not found")
	ErrSelfFollow         = apperr.Invalid("users cannot follow themselves")
	ErrTweetFieldsMissing = apperr.Invalid("User ID and tweet text are required")
	ErrUsernameRequired   = apperr.Invalid("Username and email are required")
)

// Service is safe for concurrent use; it holds no per-request state.
type Service struct {
	users     store.UserRepository
	tweets    store.TweetRepository
	follows   store.FollowGraph
	stats     store.StatsStore
	events    appkafka.EventPublisher
	maxLength int
}

type Option func(*Service)

// WithMaxTweetLength caps tweet text, in runes.
func WithMaxTweetLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLength = n
		}
	}
}

// WithPublisher sets where domain events go. Defaults to dropping them.
func WithPublisher(p appkafka.EventPublisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

// New builds a Service backed by st.
func New(st store.StoreInterface, opts ...Option) *Service {
	s := &Service{
		users:     st,
		tweets:    st,
		follows:   st,
		stats:     st,
		events:    appkafka.NopPublisher{},
		maxLength: DefaultMaxTweetLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// requireUser confirms that the user with canonical id userID exists.
func (s *Service) requireUser(ctx context.Context, userID string, notFound error) error {
	ok, err := s.users.UserExists(ctx, userID)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to look up user", err)
	}
	if !ok {
		return notFound
	}
	return nil
}

// CreateTweet stores a new tweet by authorID. Nothing is written unless the
// author exists and the text is acceptable.
func (s *Service) CreateTweet(ctx context.Context, authorID, text string) (models.Tweet, error) {
	if authorID == "" || strings.TrimSpace(text) == "" {
		return models.Tweet{}, ErrTweetFieldsMissing
	}
	if utf8.RuneCountInString(text) > s.maxLength {
		return models.Tweet{}, apperr.Invalid("tweet text exceeds maximum length")
	}
	authorID, err := ident.Normalize("author_id", authorID)
	if err != nil {
		return models.Tweet{}, err
	}
	if err := s.requireUser(ctx, authorID, ErrUserNotFound); err != nil {
		return models.Tweet{}, err
	}

	tweet, err := s.tweets.CreateTweet(ctx, authorID, text)
	if err != nil {
		return models.Tweet{}, apperr.Wrap(apperr.Internal, "failed to create tweet", err)
	}
	metrics.TweetsCreated.Inc()

	s.publish(ctx, models.Event{
		Type:    models.EventTweetCreated,
		ActorID: authorID,
		TweetID: tweet.ID,
	})
	return tweet, nil
}

// Follow makes followerID follow targetID. Repeating it is a no-op.
func (s *Service) Follow(ctx context.Context, targetID, followerID string) error {
	if followerID == "" {
		return apperr.Invalid("follower_id is required")
	}
	followerID, err := ident.Normalize("follower_id", followerID)
	if err != nil {
		return err
	}
	targetID, err = ident.Normalize("user_id", targetID)
	if err != nil {
		return err
	}
	if followerID == targetID {
		return ErrSelfFollow
	}
	if err := s.requireUser(ctx, targetID, ErrFollowUserNotFound); err != nil {
		return err
	}
	if err := s.requireUser(ctx, followerID, ErrFollowUserNotFound); err != nil {
		return err
	}

	created, err := s.follows.AddFollow(ctx, followerID, targetID)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "failed to follow user", err)
	}
	if !created {
		logg.Debug("feed", "Follow already present, nothing to do")
		return nil
	}
	metrics.FollowsCreated.Inc()

	s.publish(ctx, models.Event{
		Type:     models.EventUserFollowed,
		ActorID:  followerID,
		TargetID: targetID,
	})
	return nil
}

// GetTimeline returns the tweets of everyone userID follows, newest first.
// Following nobody yields an empty, non-nil slice.
func (s *Service) GetTimeline(ctx context.Context, userID string) ([]models.Tweet, error) {
	tweets, err := s.timeline(ctx, userID)
	if err != nil {
		metrics.TimelineReads.WithLabelValues(apperr.KindOf(err).String()).Inc()
		return nil, err
	}
	metrics.TimelineReads.WithLabelValues("ok").Inc()
	metrics.TimelineSize.Observe(float64(len(tweets)))
	return tweets, nil
}

func (s *Service) timeline(ctx context.Context, userID string) ([]models.Tweet, error) {
	userID, err := ident.Normalize("user_id", userID)
	if err != nil {
		return nil, err
	}
	if err := s.requireUser(ctx, userID, ErrUserNotFound); err != nil {
		return nil, err
	}

	followees, err := s.follows.FolloweesOf(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to load followees", err)
	}
	if len(followees) == 0 {
		return []models.Tweet{}, nil
	}

	tweets, err := s.tweets.FindTweetsByAuthors(ctx, followees)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to load timeline tweets", err)
	}
	if tweets == nil {
		tweets = []models.Tweet{}
	}
	return tweets, nil
}

// publish is best effort: the write already succeeded, so a broker failure
// is logged and counted but not returned. The event outlives the request, so a
// client disconnect does not drop it.
func (s *Service) publish(ctx context.Context, ev models.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.events.Publish(ctx, ev); err != nil {
		metrics.EventsPublished.WithLabelValues(string(ev.Type), "error").Inc()
		logg.Error("feed", "Failed to publish "+string(ev.Type)+" event", err)
		return
	}
	metrics.EventsPublished.WithLabelValues(string(ev.Type), "ok").Inc()
}
