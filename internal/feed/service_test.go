package feed

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/tweetfeed/internal/apperr"
	appkafka "example.com/tweetfeed/internal/broker"
	"example.com/tweetfeed/internal/models"
	"example.com/tweetfeed/internal/store"
)

type fixture struct {
	store *store.MockStore
	kafka *appkafka.MockKafka
	svc   *Service
}

// newFixture uses a clock that advances one second per call, so every
// created tweet is strictly newer than the previous one.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	st := store.NewMock()
	st.Now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	mk := &appkafka.MockKafka{}
	return &fixture{
		store: st,
		kafka: mk,
		svc:   New(st, WithPublisher(appkafka.NewPublisher(mk))),
	}
}

func (f *fixture) events(t *testing.T) []models.Event {
	t.Helper()
	var out []models.Event
	for _, msg := range f.kafka.Written() {
		ev, err := appkafka.DecodeEvent(msg.Value)
		require.NoError(t, err)
		out = append(out, ev)
	}
	return out
}

func texts(tweets []models.Tweet) []string {
	out := make([]string, len(tweets))
	for i, t := range tweets {
		out[i] = t.Text
	}
	return out
}

func requireKind(t *testing.T, want apperr.Kind, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, apperr.KindOf(err), "error: %v", err)
}

func TestTimeline_FollowThenTweetScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.store.AddUser("a")
	b := f.store.AddUser("b")

	require.NoError(t, f.svc.Follow(ctx, b, a))

	_, err := f.svc.CreateTweet(ctx, b, "hello")
	require.NoError(t, err)

	tl, err := f.svc.GetTimeline(ctx, a)
	require.NoError(t, err)
	require.Len(t, tl, 1)
	assert.Equal(t, b, tl[0].AuthorID)
	assert.Equal(t, "hello", tl[0].Text)

	_, err = f.svc.CreateTweet(ctx, b, "world")
	require.NoError(t, err)

	tl, err = f.svc.GetTimeline(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []string{"world", "hello"}, texts(tl))
}

func TestTimeline_OrdersAcrossFollowees(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.store.AddUser("u")
	x := f.store.AddUser("x")
	y := f.store.AddUser("y")
	stranger := f.store.AddUser("stranger")

	require.NoError(t, f.svc.Follow(ctx, x, u))
	require.NoError(t, f.svc.Follow(ctx, y, u))

	for _, step := range []struct{ author, text string }{
		{x, "t1"}, {stranger, "ignored"}, {y, "t2"}, {x, "t3"},
	} {
		_, err := f.svc.CreateTweet(ctx, step.author, step.text)
		require.NoError(t, err)
	}

	tl, err := f.svc.GetTimeline(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, []string{"t3", "t2", "t1"}, texts(tl))

	// unchanged data, unchanged order
	again, err := f.svc.GetTimeline(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, tl, again)
}

func TestTimeline_SameTimestampIsStable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	frozen := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	f.store.Now = func() time.Time { return frozen }

	u := f.store.AddUser("u")
	x := f.store.AddUser("x")
	y := f.store.AddUser("y")
	require.NoError(t, f.svc.Follow(ctx, x, u))
	require.NoError(t, f.svc.Follow(ctx, y, u))

	for _, author := range []string{x, y, x, y} {
		_, err := f.svc.CreateTweet(ctx, author, "same instant")
		require.NoError(t, err)
	}

	first, err := f.svc.GetTimeline(ctx, u)
	require.NoError(t, err)
	require.Len(t, first, 4)
	for i := 0; i < 5; i++ {
		next, err := f.svc.GetTimeline(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, first, next)
	}
}

func TestTimeline_EmptyWhenFollowingNobody(t *testing.T) {
	f := newFixture(t)
	u := f.store.AddUser("loner")

	tl, err := f.svc.GetTimeline(context.Background(), u)
	require.NoError(t, err)
	assert.NotNil(t, tl)
	assert.Empty(t, tl)
}

func TestTimeline_UnknownUserIsNotFound(t *testing.T) {
	f := newFixture(t)

	tl, err := f.svc.GetTimeline(context.Background(), gocql.TimeUUID().String())
	requireKind(t, apperr.NotFound, err)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Nil(t, tl)
}

func TestTimeline_MalformedIDIsInvalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetTimeline(context.Background(), "507f1f77bcf86cd799439011")
	requireKind(t, apperr.InvalidInput, err)
}

func TestTimeline_StoreFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	u := f.store.AddUser("u")
	f.store.ShouldFail = true

	_, err := f.svc.GetTimeline(context.Background(), u)
	requireKind(t, apperr.Internal, err)
	assert.Equal(t, "internal server error", apperr.PublicMessage(err))
}

func TestFollow_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.store.AddUser("a")
	b := f.store.AddUser("b")

	require.NoError(t, f.svc.Follow(ctx, b, a))
	require.NoError(t, f.svc.Follow(ctx, b, a))

	followees, err := f.store.FolloweesOf(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []string{b}, followees)

	_, err = f.svc.CreateTweet(ctx, b, "once")
	require.NoError(t, err)
	tl, err := f.svc.GetTimeline(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []string{"once"}, texts(tl))

	var follows int
	for _, ev := range f.events(t) {
		if ev.Type == models.EventUserFollowed {
			follows++
			assert.Equal(t, a, ev.ActorID)
			assert.Equal(t, b, ev.TargetID)
		}
	}
	assert.Equal(t, 1, follows)
}

func TestFollow_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.store.AddUser("a")
	b := f.store.AddUser("b")
	unknown := gocql.TimeUUID().String()

	err := f.svc.Follow(ctx, b, "")
	requireKind(t, apperr.InvalidInput, err)
	assert.Equal(t, "follower_id is required", apperr.PublicMessage(err))

	requireKind(t, apperr.InvalidInput, f.svc.Follow(ctx, b, "not-an-id"))
	requireKind(t, apperr.InvalidInput, f.svc.Follow(ctx, "not-an-id", a))

	err = f.svc.Follow(ctx, a, a)
	requireKind(t, apperr.InvalidInput, err)
	assert.ErrorIs(t, err, ErrSelfFollow)

	requireKind(t, apperr.NotFound, f.svc.Follow(ctx, unknown, a))
	requireKind(t, apperr.NotFound, f.svc.Follow(ctx, b, unknown))

	followees, err := f.store.FolloweesOf(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, followees)
	assert.Empty(t, f.kafka.Written())
}

func TestCreateTweet_UnknownAuthorWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.store.AddUser("someone")
	before := f.store.TweetCount()

	_, err := f.svc.CreateTweet(context.Background(), gocql.TimeUUID().String(), "x")
	requireKind(t, apperr.NotFound, err)
	assert.Equal(t, before, f.store.TweetCount())
	assert.Empty(t, f.kafka.Written())
}

func TestCreateTweet_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.store.AddUser("a")

	cases := map[string]struct{ author, text string }{
		"missing author": {"", "hi"},
		"missing text":   {a, ""},
		"blank text":     {a, "   "},
		"malformed id":   {"42", "hi"},
		"text too long":  {a, strings.Repeat("é", DefaultMaxTweetLength+1)},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateTweet(ctx, tc.author, tc.text)
			requireKind(t, apperr.InvalidInput, err)
		})
	}
	assert.Zero(t, f.store.TweetCount())
}

func TestCreateTweet_ReturnsPopulatedTweet(t *testing.T) {
	f := newFixture(t)
	a := f.store.AddUser("a")

	tw, err := f.svc.CreateTweet(context.Background(), a, strings.Repeat("é", DefaultMaxTweetLength))
	require.NoError(t, err)
	assert.NotEmpty(t, tw.ID)
	assert.Equal(t, a, tw.AuthorID)
	assert.False(t, tw.CreatedAt.IsZero())

	evs := f.events(t)
	require.Len(t, evs, 1)
	assert.Equal(t, models.EventTweetCreated, evs[0].Type)
	assert.Equal(t, tw.ID, evs[0].TweetID)
}

func TestCreateTweet_PublishFailureDoesNotFailRequest(t *testing.T) {
	st := store.NewMock()
	svc := New(st, WithPublisher(appkafka.NewPublisher(&appkafka.MockKafkaFail{})))
	a := st.AddUser("a")

	_, err := svc.CreateTweet(context.Background(), a, "still stored")
	require.NoError(t, err)
	assert.Equal(t, 1, st.TweetCount())
}

func TestCreateTweet_MaxLengthOption(t *testing.T) {
	st := store.NewMock()
	svc := New(st, WithMaxTweetLength(5))
	a := st.AddUser("a")

	_, err := svc.CreateTweet(context.Background(), a, "123456")
	requireKind(t, apperr.InvalidInput, err)

	_, err = svc.CreateTweet(context.Background(), a, "12345")
	require.NoError(t, err)
}

func TestConcurrentRequests(t *testing.T) {
	ctx := context.Background()
	st := store.NewMock()
	svc := New(st)
	reader := st.AddUser("reader")

	authors := make([]string, 8)
	for i := range authors {
		authors[i] = st.AddUser("author" + string(rune('a'+i)))
	}

	var wg sync.WaitGroup
	for _, author := range authors {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, svc.Follow(ctx, id, reader))
			for i := 0; i < 5; i++ {
				_, err := svc.CreateTweet(ctx, id, "post")
				assert.NoError(t, err)
				_, err = svc.GetTimeline(ctx, reader)
				assert.NoError(t, err)
			}
		}(author)
	}
	wg.Wait()

	tl, err := svc.GetTimeline(ctx, reader)
	require.NoError(t, err)
	assert.Len(t, tl, len(authors)*5)
}

func TestFollow_SelfRejectedRegardlessOfCase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.store.AddUser("a")

	err := f.svc.Follow(ctx, strings.ToUpper(a), a)
	requireKind(t, apperr.InvalidInput, err)
	assert.ErrorIs(t, err, ErrSelfFollow)

	err = f.svc.Follow(ctx, a, strings.ToUpper(a))
	assert.ErrorIs(t, err, ErrSelfFollow)

	followees, err := f.store.FolloweesOf(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, followees)
	assert.Empty(t, f.kafka.Written())
}

func TestIDs_AreStoredInCanonicalForm(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.store.AddUser("a")
	b := f.store.AddUser("b")

	require.NoError(t, f.svc.Follow(ctx, strings.ToUpper(b), strings.ToUpper(a)))
	// same edge in canonical form
	require.NoError(t, f.svc.Follow(ctx, b, a))
	followees, err := f.store.FolloweesOf(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []string{b}, followees)

	tw, err := f.svc.CreateTweet(ctx, strings.ToUpper(b), "shouted id")
	require.NoError(t, err)
	assert.Equal(t, b, tw.AuthorID)

	tl, err := f.svc.GetTimeline(ctx, strings.ToUpper(a))
	require.NoError(t, err)
	require.Len(t, tl, 1)
	assert.Equal(t, b, tl[0].AuthorID)

	p, err := f.svc.GetUser(ctx, strings.ToUpper(b))
	require.NoError(t, err)
	assert.Equal(t, b, p.ID)

	for _, ev := range f.events(t) {
		assert.Equal(t, strings.ToLower(ev.ActorID), ev.ActorID)
		assert.Equal(t, strings.ToLower(ev.TargetID), ev.TargetID)
	}
}

// ctxWriter fails like a real writer when its context is already done.
type ctxWriter struct {
	appkafka.MockKafka
}

func (w *ctxWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return w.MockKafka.WriteMessages(ctx, msgs...)
}

func TestPublish_SurvivesCancelledRequest(t *testing.T) {
	st := store.NewMock()
	w := &ctxWriter{}
	svc := New(st, WithPublisher(appkafka.NewPublisher(w)))
	a := st.AddUser("a")
	b := st.AddUser("b")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// the mock store ignores ctx, so the writes land and events must follow
	_, err := svc.CreateTweet(ctx, a, "sent while client hung up")
	require.NoError(t, err)
	require.NoError(t, svc.Follow(ctx, b, a))

	assert.Len(t, w.Written(), 2)
}
