package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// App mode & server
	Mode            string
	ServerAddr      string
	TLSCertFile     string
	TLSKeyFile      string
	ShutdownTimeout time.Duration
	LogLevel        string

	// Request limits
	RateLimitRPS   float64
	RateLimitBurst int
	MaxTweetLength int
	TimelineFanout int

	// Kafka
	KafkaEnabled bool
	KafkaBroker  string
	KafkaTopic   string
	KafkaGroupID string
	KafkaReadTO  time.Duration
	KafkaWriteTO time.Duration

	// Stats worker
	WorkerCount     int
	WorkerQueueSize int

	// Cassandra
	CassandraHost     string
	CassandraKeyspace string
	CassandraUsername string
	CassandraPassword string
	CassandraTimeout  time.Duration
	CassandraDC       string
}

var cfg *Config

// Init loads the config using Viper and returns it
func Init() *Config {
	v := viper.New()

	v.SetDefault("MODE", "server")
	v.SetDefault("SERVER_ADDR", ":8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("RATE_LIMIT_RPS", 0)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("MAX_TWEET_LENGTH", 280)
	v.SetDefault("TIMELINE_FANOUT", 8)

	v.SetDefault("KAFKA_ENABLED", true)
	v.SetDefault("KAFKA_BROKER", "localhost:29092")
	v.SetDefault("KAFKA_TOPIC", "tweetfeed-events")
	v.SetDefault("KAFKA_GROUP_ID", "stats-worker")
	v.SetDefault("KAFKA_READ_TIMEOUT", "10s")
	v.SetDefault("KAFKA_WRITE_TIMEOUT", "10s")

	// 0 means runtime.NumCPU() workers and a queue of 10 per worker
	v.SetDefault("WORKER_COUNT", 0)
	v.SetDefault("WORKER_QUEUE_SIZE", 0)

	v.SetDefault("CASSANDRA_HOST", "localhost")
	v.SetDefault("CASSANDRA_KEYSPACE", "tweetfeed")
	v.SetDefault("CASSANDRA_TIMEOUT", "10s")
	// Optional: Cassandra username/password/DC can be empty

	// Load env variables
	v.AutomaticEnv()

	// Optional config file support
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // ignore error if no file

	cfg = &Config{
		Mode:              v.GetString("MODE"),
		ServerAddr:        v.GetString("SERVER_ADDR"),
		TLSCertFile:       v.GetString("TLS_CERT_FILE"),
		TLSKeyFile:        v.GetString("TLS_KEY_FILE"),
		ShutdownTimeout:   parseDuration(v.GetString("SHUTDOWN_TIMEOUT"), 10*time.Second),
		LogLevel:          v.GetString("LOG_LEVEL"),
		RateLimitRPS:      v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:    v.GetInt("RATE_LIMIT_BURST"),
		MaxTweetLength:    v.GetInt("MAX_TWEET_LENGTH"),
		TimelineFanout:    v.GetInt("TIMELINE_FANOUT"),
		KafkaEnabled:      v.GetBool("KAFKA_ENABLED"),
		KafkaBroker:       v.GetString("KAFKA_BROKER"),
		KafkaTopic:        v.GetString("KAFKA_TOPIC"),
		KafkaGroupID:      v.GetString("KAFKA_GROUP_ID"),
		KafkaReadTO:       parseDuration(v.GetString("KAFKA_READ_TIMEOUT"), 10*time.Second),
		KafkaWriteTO:      parseDuration(v.GetString("KAFKA_WRITE_TIMEOUT"), 10*time.Second),
		WorkerCount:       v.GetInt("WORKER_COUNT"),
		WorkerQueueSize:   v.GetInt("WORKER_QUEUE_SIZE"),
		CassandraHost:     v.GetString("CASSANDRA_HOST"),
		CassandraKeyspace: v.GetString("CASSANDRA_KEYSPACE"),
		CassandraUsername: v.GetString("CASSANDRA_USERNAME"),
		CassandraPassword: v.GetString("CASSANDRA_PASSWORD"),
		CassandraTimeout:  parseDuration(v.GetString("CASSANDRA_TIMEOUT"), 10*time.Second),
		CassandraDC:       v.GetString("CASSANDRA_DC"),
	}

	return cfg
}

func parseDuration(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

// Get returns the loaded config instance
func Get() *Config {
	return cfg
}
