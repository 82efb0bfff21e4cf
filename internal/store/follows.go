package store

import (
	"context"
	"fmt"
	"time"

	"example.com/tweetfeed/internal/models"
)

// AddFollow inserts the edge unless it already exists. The primary key
// (follower_id, followee_id) keeps at most one edge per ordered pair; the
// returned bool reports whether this call created it.
func (s *Store) AddFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	result := make(map[string]interface{})
	applied, err := s.Session.Query(`
		INSERT INTO follows (follower_id, followee_id, created_at)
		VALUES (?, ?, ?) IF NOT EXISTS`,
		followerID, followeeID, s.now().UTC().Truncate(time.Millisecond),
	).WithContext(ctx).MapScanCAS(result)
	if err != nil {
		logg.Error("store", "Failed to create follow relationship", err)
		return false, fmt.Errorf("insert follow: %w", err)
	}

	if applied {
		logg.Info("store", "Follow relationship created (user IDs anonymized)")
	} else {
		logg.Debug("store", "Follow relationship already present")
	}
	return applied, nil
}

// FolloweesOf returns every user that userID follows.
func (s *Store) FolloweesOf(ctx context.Context, userID string) ([]string, error) {
	iter := s.Session.Query(
		`SELECT followee_id FROM follows WHERE follower_id = ?`,
		userID,
	).WithContext(ctx).Iter()

	var id string
	res := []string{}
	for iter.Scan(&id) {
		res = append(res, id)
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to get followees", err)
		return nil, fmt.Errorf("list followees: %w", err)
	}

	return res, nil
}

// --- Stats counters ---

func (s *Store) IncrementUserStats(ctx context.Context, userID string, delta models.UserStats) error {
	if err := s.Session.Query(`
		UPDATE user_stats
		SET tweets = tweets + ?, followers = followers + ?, following = following + ?
		WHERE user_id = ?`,
		delta.Tweets, delta.Followers, delta.Following, userID,
	).WithContext(ctx).Exec(); err != nil {
		logg.Error("store", "Failed to update user stats", err)
		return fmt.Errorf("update stats: %w", err)
	}
	return nil
}

// GetUserStats returns zero counters for users with no recorded activity.
func (s *Store) GetUserStats(ctx context.Context, userID string) (models.UserStats, error) {
	iter := s.Session.Query(
		`SELECT tweets, followers, following FROM user_stats WHERE user_id = ?`,
		userID,
	).WithContext(ctx).Iter()

	var st models.UserStats
	iter.Scan(&st.Tweets, &st.Followers, &st.Following)

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to read user stats", err)
		return models.UserStats{}, fmt.Errorf("get stats: %w", err)
	}
	return st, nil
}
