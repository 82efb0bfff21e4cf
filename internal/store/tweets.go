package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gocql/gocql"

	"example.com/tweetfeed/internal/models"
)

// CreateTweet assigns an id and creation time and persists the tweet.
func (s *Store) CreateTweet(ctx context.Context, authorID, text string) (models.Tweet, error) {
	now := s.now().UTC()
	tweet := models.Tweet{
		ID:        gocql.UUIDFromTime(now).String(),
		AuthorID:  authorID,
		Text:      text,
		CreatedAt: now.Truncate(time.Millisecond),
	}

	if err := s.Session.Query(`
		INSERT INTO tweets_by_author (author_id, tweet_id, text, created_at)
		VALUES (?, ?, ?, ?)`,
		tweet.AuthorID, tweet.ID, tweet.Text, tweet.CreatedAt,
	).WithContext(ctx).Exec(); err != nil {
		logg.Error("store", "Failed to add tweet", err)
		return models.Tweet{}, fmt.Errorf("insert tweet: %w", err)
	}

	logg.Info("store", "Tweet added to tweets_by_author (content anonymized)")
	return tweet, nil
}

// FindTweetsByAuthors reads one partition per author with bounded
// concurrency and merges the results newest first.
func (s *Store) FindTweetsByAuthors(ctx context.Context, authorIDs []string) ([]models.Tweet, error) {
	res, err := fanOutTweets(ctx, authorIDs, s.fanout, s.tweetsByAuthor)
	if err != nil {
		logg.Error("store", "Failed to read tweets by authors", err)
		return nil, err
	}
	return res, nil
}

type tweetFetcher func(ctx context.Context, authorID string) ([]models.Tweet, error)

// fanOutTweets runs fetch for every author with at most limit calls in
// flight. The first failure cancels the remaining calls and is returned.
// The merged result is sorted newest first and never nil.
func fanOutTweets(ctx context.Context, authorIDs []string, limit int, fetch tweetFetcher) ([]models.Tweet, error) {
	if len(authorIDs) == 0 {
		return []models.Tweet{}, nil
	}
	if limit <= 0 {
		limit = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
		res      = []models.Tweet{}
	)
	semaphore := make(chan struct{}, limit)
	launched := 0

launch:
	for _, id := range authorIDs {
		select {
		case semaphore <- struct{}{}:
		case <-ctx.Done():
			break launch
		}
		wg.Add(1)
		launched++

		go func(authorID string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			tweets, err := fetch(ctx, authorID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				return
			}
			res = append(res, tweets...)
		}(id)
	}
	wg.Wait()

	if firstErr == nil && launched < len(authorIDs) {
		// parent cancelled before every author was launched
		firstErr = ctx.Err()
	}
	if firstErr != nil {
		return nil, firstErr
	}

	SortTweets(res)
	return res, nil
}

func (s *Store) tweetsByAuthor(ctx context.Context, authorID string) ([]models.Tweet, error) {
	iter := s.Session.Query(`
		SELECT tweet_id, author_id, text, created_at
		FROM tweets_by_author WHERE author_id = ?`,
		authorID,
	).WithContext(ctx).Iter()

	var res []models.Tweet
	var t models.Tweet
	for iter.Scan(&t.ID, &t.AuthorID, &t.Text, &t.CreatedAt) {
		res = append(res, t)
	}

	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("read tweets for author: %w", err)
	}
	return res, nil
}

// ListTweets scans every tweet partition.
func (s *Store) ListTweets(ctx context.Context) ([]models.Tweet, error) {
	iter := s.Session.Query(
		`SELECT tweet_id, author_id, text, created_at FROM tweets_by_author`,
	).WithContext(ctx).Iter()

	res := []models.Tweet{}
	var t models.Tweet
	for iter.Scan(&t.ID, &t.AuthorID, &t.Text, &t.CreatedAt) {
		res = append(res, t)
	}

	if err := iter.Close(); err != nil {
		logg.Error("store", "Failed to list tweets", err)
		return nil, fmt.Errorf("list tweets: %w", err)
	}

	SortTweets(res)
	return res, nil
}
