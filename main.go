package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"example.com/tweetfeed/cmd/server"
	"example.com/tweetfeed/cmd/worker"
	appkafka "example.com/tweetfeed/internal/broker"
	"example.com/tweetfeed/internal/feed"
	config "example.com/tweetfeed/internal/init"
	"example.com/tweetfeed/internal/logger"
	"example.com/tweetfeed/internal/store"
)

func main() {
	// A missing .env is fine; the environment and defaults still apply
	_ = godotenv.Load()

	// Initialize application configuration
	cfg := config.Init()
	mode := cfg.Mode
	logger.Configure(cfg.LogLevel, nil)

	// Initialize Cassandra store connection and apply migrations
	st, err := store.New(cfg)
	if err != nil {
		log.Fatalf("Cassandra connection failed: %v", err)
	}
	defer st.Close()

	// Configure Kafka client parameters
	kafkaCfg := appkafka.KafkaConfig{
		Brokers:      []string{cfg.KafkaBroker},
		Topic:        cfg.KafkaTopic,
		GroupID:      cfg.KafkaGroupID,
		WriteTimeout: cfg.KafkaWriteTO,
		ReadTimeout:  cfg.KafkaReadTO,
	}

	// Setup OS signal handling for graceful shutdown (SIGINT, SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run application depending on selected mode
	switch mode {
	case "server":
		var publisher appkafka.EventPublisher = appkafka.NopPublisher{}
		if cfg.KafkaEnabled {
			kafkaWriter, err := appkafka.NewKafkaWriter(kafkaCfg)
			if err != nil {
				log.Fatalf("Kafka writer init failed: %v", err)
			}
			defer kafkaWriter.Close()
			publisher = appkafka.NewPublisher(kafkaWriter)
		}

		svc := feed.New(st,
			feed.WithMaxTweetLength(cfg.MaxTweetLength),
			feed.WithPublisher(publisher),
		)
		server.Run(ctx, svc, server.Options{
			Addr:            cfg.ServerAddr,
			CertFile:        cfg.TLSCertFile,
			KeyFile:         cfg.TLSKeyFile,
			ShutdownTimeout: cfg.ShutdownTimeout,
			RateLimitRPS:    cfg.RateLimitRPS,
			RateLimitBurst:  cfg.RateLimitBurst,
		})
	case "worker":
		// Start the worker that turns events into per-user counters
		kafkaReader := appkafka.NewKafkaReader(kafkaCfg)
		defer kafkaReader.Close()

		w := worker.New(st, kafkaReader, cfg.WorkerCount, cfg.WorkerQueueSize)
		w.Run(ctx)
	default:
		log.Fatalf("unknown mode: %s", mode)
	}

	log.Println("Shutdown completed")
}
