package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"example.com/tweetfeed/internal/models"
)

// UserExists reports whether a user row exists for userID.
func (s *Store) UserExists(ctx context.Context, userID string) (bool, error) {
	var id string
	err := s.Session.Query(
		`SELECT user_id FROM users WHERE user_id = ?`,
		userID,
	).WithContext(ctx).Scan(&id)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return false, nil
		}
		logg.Error("store", "Failed to check user existence", err)
		return false, fmt.Errorf("check user: %w", err)
	}
	return true, nil
}

// GetUser returns the user and whether it was found.
func (s *Store) GetUser(ctx context.Context, userID string) (models.User, bool, error) {
	var u models.User
	err := s.Session.Query(
		`SELECT user_id, username, email, created_at FROM users WHERE user_id = ?`,
		userID,
	).WithContext(ctx).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return models.User{}, false, nil
		}
		logg.Error("store", "Failed to query user", err)
		return models.User{}, false, fmt.Errorf("get user: %w", err)
	}
	return u, true, nil
}

// getUserIDByUsername returns the existing user_id by username.
// If the user does not exist, it returns empty string without an error.
func (s *Store) getUserIDByUsername(ctx context.Context, username string) (string, error) {
	var id string
	err := s.Session.Query(
		`SELECT user_id FROM users_by_username WHERE username = ?`,
		username,
	).WithContext(ctx).Scan(&id)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return "", nil
		}
		logg.Error("store", "Failed to query user by username", err)
		return "", fmt.Errorf("get user by username: %w", err)
	}
	return id, nil
}

// CreateUser creates a new user if the username does not exist.
// Returns the existing user and false if the username is taken.
func (s *Store) CreateUser(ctx context.Context, username, email string) (models.User, bool, error) {
	existingID, err := s.getUserIDByUsername(ctx, username)
	if err != nil {
		return models.User{}, false, err
	}
	if existingID != "" {
		return s.existingUser(ctx, existingID)
	}

	u := models.User{
		ID:        gocql.TimeUUID().String(),
		Username:  username,
		Email:     email,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}

	// Claim the username with a lightweight transaction
	result := make(map[string]interface{})
	applied, err := s.Session.Query(`
		INSERT INTO users_by_username (username, user_id)
		VALUES (?, ?) IF NOT EXISTS`,
		username, u.ID,
	).WithContext(ctx).MapScanCAS(result)
	if err != nil {
		logg.Error("store", "Failed to create username entry", err)
		return models.User{}, false, fmt.Errorf("claim username: %w", err)
	}

	if !applied {
		// Another request already created this user
		existingID, err := s.getUserIDByUsername(ctx, username)
		if err != nil {
			return models.User{}, false, err
		}
		return s.existingUser(ctx, existingID)
	}

	err = s.Session.Query(`
		INSERT INTO users (user_id, username, email, created_at)
		VALUES (?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.CreatedAt,
	).WithContext(ctx).Exec()
	if err != nil {
		logg.Error("store", "Failed to create user in main table", err)
		return models.User{}, false, fmt.Errorf("insert user: %w", err)
	}

	logg.Info("store", "User created successfully (username anonymized)")
	return u, true, nil
}

func (s *Store) existingUser(ctx context.Context, userID string) (models.User, bool, error) {
	u, found, err := s.GetUser(ctx, userID)
	if err != nil {
		return models.User{}, false, err
	}
	if !found {
		return models.User{}, false, fmt.Errorf("username claimed by %s but user row is missing", userID)
	}
	return u, false, nil
}

// ListUsers returns every user row.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	iter := s.Session.Query(
		`SELECT user_id, username, email, created_at FROM users`,
	).WithContext(ctx).Iter()

	res := []models.User{}
	var u models.User
	for iter.Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt) {
		res = append(res, u)
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to list users", err)
		return nil, fmt.Errorf("list users: %w", err)
	}
	return res, nil
}
