package models

import "time"

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// UserStats are maintained asynchronously by the stats worker.
type UserStats struct {
	Tweets    int64 `json:"tweets"`
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
}

type UserProfile struct {
	User
	Stats UserStats `json:"stats"`
}

type Tweet struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type EventType string

const (
	EventTweetCreated EventType = "tweet_created"
	EventUserFollowed EventType = "user_followed"
)

// Event is the Kafka payload published after a successful write.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	ActorID    string    `json:"actor_id"`
	TargetID   string    `json:"target_id,omitempty"`
	TweetID    string    `json:"tweet_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
