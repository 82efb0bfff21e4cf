package appkafka

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaWriter defines an interface for writing messages to Kafka.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, messages ...kafka.Message) error
	Close() error
}

// KafkaReader defines an interface for reading messages from Kafka.
type KafkaReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaConfig holds configuration parameters for Kafka.
type KafkaConfig struct {
	Brokers      []string      // list of Kafka brokers
	Topic        string        // topic name
	WriteTimeout time.Duration // write timeout duration
	ReadTimeout  time.Duration // max wait for a fetch (consumer group)
	GroupID      string        // consumer group ID
}

func (c *KafkaConfig) withDefaults() {
	if len(c.Brokers) == 0 {
		c.Brokers = []string{"localhost:9092"}
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
}

// RealKafkaWriter implements KafkaWriter with kafka.Writer. Messages are
// partitioned by key hash, so events of one user stay ordered.
type RealKafkaWriter struct {
	writer *kafka.Writer
}

// NewKafkaWriter creates a new Kafka producer.
func NewKafkaWriter(cfg KafkaConfig) (*RealKafkaWriter, error) {
	cfg.withDefaults()
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond, // publishes are synchronous on the request path
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
	}
	return &RealKafkaWriter{writer: w}, nil
}

func (w *RealKafkaWriter) WriteMessages(ctx context.Context, messages ...kafka.Message) error {
	if w.writer == nil {
		return errors.New("kafka writer is nil")
	}
	return w.writer.WriteMessages(ctx, messages...)
}

func (w *RealKafkaWriter) Close() error {
	if w.writer != nil {
		return w.writer.Close()
	}
	return nil
}

// RealKafkaReader implements KafkaReader using kafka.Reader (consumer group).
type RealKafkaReader struct {
	reader *kafka.Reader
}

// NewKafkaReader creates a new Kafka consumer group reader.
func NewKafkaReader(cfg KafkaConfig) KafkaReader {
	cfg.withDefaults()

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		MinBytes:       1,    // events are small, deliver promptly
		MaxBytes:       10e6, // 10MB
		MaxWait:        cfg.ReadTimeout,
		CommitInterval: time.Second,
	})
	return &RealKafkaReader{reader: r}
}

func (r *RealKafkaReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	return r.reader.ReadMessage(ctx)
}

func (r *RealKafkaReader) Close() error {
	return r.reader.Close()
}
