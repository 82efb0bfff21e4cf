package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/tweetfeed/internal/models"
)

// partitions serves canned per-author results like tweetsByAuthor would.
func partitions(data map[string][]models.Tweet) tweetFetcher {
	return func(ctx context.Context, authorID string) ([]models.Tweet, error) {
		return data[authorID], nil
	}
}

func tweetAt(author, text string, at time.Time) models.Tweet {
	return models.Tweet{ID: gocql.UUIDFromTime(at).String(), AuthorID: author, Text: text, CreatedAt: at}
}

func TestFanOutTweets_MergesPartitionsNewestFirst(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	data := map[string][]models.Tweet{
		"x": {tweetAt("x", "x2", base.Add(4*time.Second)), tweetAt("x", "x1", base)},
		"y": {tweetAt("y", "y2", base.Add(3*time.Second)), tweetAt("y", "y1", base.Add(time.Second))},
		"z": {tweetAt("z", "z1", base.Add(2*time.Second))},
	}

	for _, limit := range []int{1, 2, 8} {
		got, err := fanOutTweets(context.Background(), []string{"x", "y", "z"}, limit, partitions(data))
		require.NoError(t, err)
		assert.Equal(t, []string{"x2", "y2", "z1", "y1", "x1"}, texts(got), "limit %d", limit)
	}
}

func TestFanOutTweets_EmptyInputIsNonNil(t *testing.T) {
	called := false
	got, err := fanOutTweets(context.Background(), nil, 4, func(ctx context.Context, id string) ([]models.Tweet, error) {
		called = true
		return nil, nil
	})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.False(t, called)

	got, err = fanOutTweets(context.Background(), []string{"quiet"}, 4, partitions(nil))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFanOutTweets_FirstErrorWinsAndCancelsOthers(t *testing.T) {
	errPartition := errors.New("partition unavailable")
	var cancelled atomic.Int32

	fetch := func(ctx context.Context, authorID string) ([]models.Tweet, error) {
		if authorID == "bad" {
			return nil, errPartition
		}
		select {
		case <-ctx.Done():
			cancelled.Add(1)
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
			return []models.Tweet{{ID: authorID}}, nil
		}
	}

	start := time.Now()
	got, err := fanOutTweets(context.Background(), []string{"slow1", "slow2", "bad"}, 3, fetch)

	assert.ErrorIs(t, err, errPartition)
	assert.Nil(t, got)
	assert.Equal(t, int32(2), cancelled.Load())
	assert.Less(t, time.Since(start), time.Second)
}

func TestFanOutTweets_RespectsLimit(t *testing.T) {
	const limit = 2
	var inFlight, peak atomic.Int32
	var mu sync.Mutex
	seen := map[string]bool{}

	fetch := func(ctx context.Context, authorID string) ([]models.Tweet, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		seen[authorID] = true
		mu.Unlock()
		return nil, nil
	}

	authors := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	_, err := fanOutTweets(context.Background(), authors, limit, fetch)
	require.NoError(t, err)

	assert.LessOrEqual(t, peak.Load(), int32(limit))
	assert.Len(t, seen, len(authors))
}

func TestFanOutTweets_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fanOutTweets(ctx, []string{"a", "b", "c"}, 1, func(ctx context.Context, id string) ([]models.Tweet, error) {
		return nil, ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
}
