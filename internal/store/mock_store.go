package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/gocql/gocql"

	"example.com/tweetfeed/internal/models"
)

// MockStore simulates Cassandra operations for testing.
type MockStore struct {
	mu sync.Mutex

	Users      map[string]models.User
	Usernames  map[string]string
	Tweets     []models.Tweet
	Followees  map[string][]string
	Stats      map[string]models.UserStats
	ShouldFail bool // flag to simulate failures

	// Now overrides the clock used for ids and timestamps.
	Now func() time.Time
}

// NewMock initializes a new mock store
func NewMock() *MockStore {
	return &MockStore{
		Users:     make(map[string]models.User),
		Usernames: make(map[string]string),
		Followees: make(map[string][]string),
		Stats:     make(map[string]models.UserStats),
		Now:       time.Now,
	}
}

func (m *MockStore) Close() {}

func (m *MockStore) now() time.Time {
	if m.Now == nil {
		return time.Now().UTC()
	}
	return m.Now().UTC()
}

// AddUser inserts a user directly and returns its id.
func (m *MockStore) AddUser(username string) string {
	u, _, _ := m.CreateUser(context.Background(), username, username+"@example.com")
	return u.ID
}

// TweetCount returns the number of stored tweets.
func (m *MockStore) TweetCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Tweets)
}

func (m *MockStore) UserExists(ctx context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return false, errors.New("mock: user lookup failed")
	}
	_, ok := m.Users[userID]
	return ok, nil
}

func (m *MockStore) CreateUser(ctx context.Context, username, email string) (models.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return models.User{}, false, errors.New("mock: create user failed")
	}
	if id, ok := m.Usernames[username]; ok {
		return m.Users[id], false, nil
	}
	now := m.now()
	u := models.User{
		ID:        gocql.UUIDFromTime(now).String(),
		Username:  username,
		Email:     email,
		CreatedAt: now.Truncate(time.Millisecond),
	}
	m.Users[u.ID] = u
	m.Usernames[username] = u.ID
	return u, true, nil
}

func (m *MockStore) GetUser(ctx context.Context, userID string) (models.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return models.User{}, false, errors.New("mock: get user failed")
	}
	u, ok := m.Users[userID]
	return u, ok, nil
}

func (m *MockStore) ListUsers(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, errors.New("mock: list users failed")
	}
	res := make([]models.User, 0, len(m.Users))
	for _, u := range m.Users {
		res = append(res, u)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Username < res[j].Username })
	return res, nil
}

func (m *MockStore) CreateTweet(ctx context.Context, authorID, text string) (models.Tweet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return models.Tweet{}, errors.New("mock: create tweet failed")
	}
	now := m.now()
	t := models.Tweet{
		ID:        gocql.UUIDFromTime(now).String(),
		AuthorID:  authorID,
		Text:      text,
		CreatedAt: now.Truncate(time.Millisecond),
	}
	m.Tweets = append(m.Tweets, t)
	return t, nil
}

func (m *MockStore) FindTweetsByAuthors(ctx context.Context, authorIDs []string) ([]models.Tweet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, errors.New("mock: find tweets failed")
	}
	authors := make(map[string]struct{}, len(authorIDs))
	for _, id := range authorIDs {
		authors[id] = struct{}{}
	}
	res := []models.Tweet{}
	for _, t := range m.Tweets {
		if _, ok := authors[t.AuthorID]; ok {
			res = append(res, t)
		}
	}
	SortTweets(res)
	return res, nil
}

func (m *MockStore) ListTweets(ctx context.Context) ([]models.Tweet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, errors.New("mock: list tweets failed")
	}
	res := append([]models.Tweet{}, m.Tweets...)
	SortTweets(res)
	return res, nil
}

// AddFollow is a no-op when the edge already exists
func (m *MockStore) AddFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return false, errors.New("mock: follow failed")
	}
	for _, id := range m.Followees[followerID] {
		if id == followeeID {
			return false, nil
		}
	}
	m.Followees[followerID] = append(m.Followees[followerID], followeeID)
	return true, nil
}

func (m *MockStore) FolloweesOf(ctx context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, errors.New("mock: get followees failed")
	}
	return append([]string{}, m.Followees[userID]...), nil
}

func (m *MockStore) IncrementUserStats(ctx context.Context, userID string, delta models.UserStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errors.New("mock: update stats failed")
	}
	st := m.Stats[userID]
	st.Tweets += delta.Tweets
	st.Followers += delta.Followers
	st.Following += delta.Following
	m.Stats[userID] = st
	return nil
}

func (m *MockStore) GetUserStats(ctx context.Context, userID string) (models.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return models.UserStats{}, errors.New("mock: get stats failed")
	}
	return m.Stats[userID], nil
}

// ---------------------------------------------
// MockStoreFail always returns errors for negative tests
type MockStoreFail struct{}

var errMockStore = errors.New("mock store failure")

func (m *MockStoreFail) Close() {}

func (m *MockStoreFail) UserExists(ctx context.Context, userID string) (bool, error) {
	return false, errMockStore
}

func (m *MockStoreFail) CreateUser(ctx context.Context, username, email string) (models.User, bool, error) {
	return models.User{}, false, errMockStore
}

func (m *MockStoreFail) GetUser(ctx context.Context, userID string) (models.User, bool, error) {
	return models.User{}, false, errMockStore
}

func (m *MockStoreFail) ListUsers(ctx context.Context) ([]models.User, error) {
	return nil, errMockStore
}

func (m *MockStoreFail) CreateTweet(ctx context.Context, authorID, text string) (models.Tweet, error) {
	return models.Tweet{}, errMockStore
}

func (m *MockStoreFail) FindTweetsByAuthors(ctx context.Context, authorIDs []string) ([]models.Tweet, error) {
	return nil, errMockStore
}

func (m *MockStoreFail) ListTweets(ctx context.Context) ([]models.Tweet, error) {
	return nil, errMockStore
}

func (m *MockStoreFail) AddFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	return false, errMockStore
}

func (m *MockStoreFail) FolloweesOf(ctx context.Context, userID string) ([]string, error) {
	return nil, errMockStore
}

func (m *MockStoreFail) IncrementUserStats(ctx context.Context, userID string, delta models.UserStats) error {
	return errMockStore
}

func (m *MockStoreFail) GetUserStats(ctx context.Context, userID string) (models.UserStats, error) {
	return models.UserStats{}, errMockStore
}

var (
	_ StoreInterface = (*Store)(nil)
	_ StoreInterface = (*MockStore)(nil)
	_ StoreInterface = (*MockStoreFail)(nil)
)
