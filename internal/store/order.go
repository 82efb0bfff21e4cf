package store

import (
	"sort"

	"github.com/gocql/gocql"

	"example.com/tweetfeed/internal/models"
)

// SortTweets orders tweets newest first. Equal creation times fall back to
// the time UUID (timestamp, then clock sequence), then to the id string, so
// the order never varies for unchanged data.
func SortTweets(tweets []models.Tweet) {
	sort.SliceStable(tweets, func(i, j int) bool {
		return newerFirst(tweets[i], tweets[j])
	})
}

func newerFirst(a, b models.Tweet) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}

	ua, errA := gocql.ParseUUID(a.ID)
	ub, errB := gocql.ParseUUID(b.ID)
	if errA == nil && errB == nil && ua.Version() == 1 && ub.Version() == 1 {
		if ua.Timestamp() != ub.Timestamp() {
			return ua.Timestamp() > ub.Timestamp()
		}
		if ua.Clock() != ub.Clock() {
			return ua.Clock() > ub.Clock()
		}
	}
	return a.ID > b.ID
}
