package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/cassandra"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	config "example.com/tweetfeed/internal/init"
	"example.com/tweetfeed/internal/logger"
	"example.com/tweetfeed/internal/models"
)

var logg = logger.New()

//go:embed migrations/*.cql
var migrationsFS embed.FS

// --- Interfaces ---

type SessionInterface interface {
	Query(stmt string, values ...interface{}) *gocql.Query
	Close()
}

// UserRepository owns user records.
type UserRepository interface {
	UserExists(ctx context.Context, userID string) (bool, error)
	CreateUser(ctx context.Context, username, email string) (models.User, bool, error)
	GetUser(ctx context.Context, userID string) (models.User, bool, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

// TweetRepository owns tweet records.
type TweetRepository interface {
	CreateTweet(ctx context.Context, authorID, text string) (models.Tweet, error)
	FindTweetsByAuthors(ctx context.Context, authorIDs []string) ([]models.Tweet, error)
	ListTweets(ctx context.Context) ([]models.Tweet, error)
}

// FollowGraph owns the directed follows relation.
type FollowGraph interface {
	AddFollow(ctx context.Context, followerID, followeeID string) (bool, error)
	FolloweesOf(ctx context.Context, userID string) ([]string, error)
}

// StatsStore holds the counters maintained by the stats worker.
type StatsStore interface {
	IncrementUserStats(ctx context.Context, userID string, delta models.UserStats) error
	GetUserStats(ctx context.Context, userID string) (models.UserStats, error)
}

type StoreInterface interface {
	UserRepository
	TweetRepository
	FollowGraph
	StatsStore
	Close()
}

// --- Store Implementation ---

type Store struct {
	Session SessionInterface

	// fanout bounds concurrent per-author partition reads.
	fanout int
	now    func() time.Time
}

// New initializes the Cassandra connection and applies pending migrations.
func New(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("store: nil config")
	}

	if err := ensureKeyspace(cfg); err != nil {
		return nil, fmt.Errorf("failed to ensure keyspace: %w", err)
	}

	if err := runMigrations(cfg); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cluster := newCluster(cfg)
	cluster.Keyspace = cfg.CassandraKeyspace
	cluster.Consistency = gocql.Quorum

	sess, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create Cassandra session: %w", err)
	}

	logg.Info("store", "Connected to Cassandra keyspace (host anonymized)")
	return NewWithSession(sess, cfg.TimelineFanout), nil
}

// NewWithSession wraps an already opened session.
func NewWithSession(sess SessionInterface, fanout int) *Store {
	if fanout <= 0 {
		fanout = 8
	}
	return &Store{Session: sess, fanout: fanout, now: time.Now}
}

func newCluster(cfg *config.Config) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(cfg.CassandraHost)
	cluster.Timeout = cfg.CassandraTimeout
	cluster.ConnectTimeout = cfg.CassandraTimeout

	if cfg.CassandraUsername != "" && cfg.CassandraPassword != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.CassandraUsername,
			Password: cfg.CassandraPassword,
		}
	}

	if cfg.CassandraDC != "" {
		cluster.HostFilter = gocql.DataCentreHostFilter(cfg.CassandraDC)
	}
	return cluster
}

// --- Ensure keyspace exists before migrations ---

func ensureKeyspace(cfg *config.Config) error {
	cluster := newCluster(cfg)
	cluster.Keyspace = "system"
	sess, err := cluster.CreateSession()
	if err != nil {
		return fmt.Errorf("failed to connect to Cassandra system keyspace: %w", err)
	}
	defer sess.Close()

	query := fmt.Sprintf(`
        CREATE KEYSPACE IF NOT EXISTS %s
        WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1};
    `, cfg.CassandraKeyspace)

	if err := sess.Query(query).Exec(); err != nil {
		return fmt.Errorf("failed to create keyspace: %w", err)
	}

	logg.Info("store", "Ensured Cassandra keyspace exists (keyspace name anonymized)")
	return nil
}

// --- Migration runner ---

func runMigrations(cfg *config.Config) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	dbURL := fmt.Sprintf(
		"cassandra://%s/%s?x-migrations-table=schema_migrations&x-multi-statement=true",
		cfg.CassandraHost, cfg.CassandraKeyspace,
	)

	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		logg.Info("store", "No new migrations to apply")
	} else {
		logg.Info("store", "Migrations applied successfully")
	}
	return nil
}

// Close gracefully closes Cassandra session.
func (s *Store) Close() {
	if s.Session != nil {
		s.Session.Close()
		logg.Info("store", "Cassandra session closed")
	}
}
