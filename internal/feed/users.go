package feed

import (
	"context"
	"strings"

	"example.com/tweetfeed/internal/apperr"
	"example.com/tweetfeed/internal/ident"
	"example.com/tweetfeed/internal/models"
)

const maxUsernameLength = 50

// CreateUser registers username. An existing username returns the stored
// user with created=false.
func (s *Service) CreateUser(ctx context.Context, username, email string) (models.User, bool, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" {
		return models.User{}, false, ErrUsernameRequired
	}
	if len(username) > maxUsernameLength {
		return models.User{}, false, apperr.Invalid("username must be 1-50 characters")
	}
	if !strings.Contains(email, "@") {
		return models.User{}, false, apperr.Invalid("email is not valid")
	}

	u, created, err := s.users.CreateUser(ctx, username, email)
	if err != nil {
		return models.User{}, false, apperr.Wrap(apperr.Internal, "failed to create user", err)
	}
	return u, created, nil
}

// GetUser returns the user with its activity counters.
func (s *Service) GetUser(ctx context.Context, userID string) (models.UserProfile, error) {
	userID, err := ident.Normalize("user_id", userID)
	if err != nil {
		return models.UserProfile{}, err
	}
	u, found, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return models.UserProfile{}, apperr.Wrap(apperr.Internal, "failed to load user", err)
	}
	if !found {
		return models.UserProfile{}, ErrUserNotFound
	}

	st, err := s.stats.GetUserStats(ctx, userID)
	if err != nil {
		return models.UserProfile{}, apperr.Wrap(apperr.Internal, "failed to load user stats", err)
	}
	return models.UserProfile{User: u, Stats: st}, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list users", err)
	}
	return users, nil
}

// ListTweets returns every tweet, newest first.
func (s *Service) ListTweets(ctx context.Context) ([]models.Tweet, error) {
	tweets, err := s.tweets.ListTweets(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to list tweets", err)
	}
	return tweets, nil
}
