package appkafka

import (
	"context"
	"errors"
	"sync"

	"github.com/segmentio/kafka-go"
)

// MockKafka records written messages and serves a queue of messages to read.
type MockKafka struct {
	mu              sync.Mutex
	WrittenMessages []kafka.Message // stores messages written via WriteMessages
	ReadMessages    []kafka.Message // queue of messages to be read via ReadMessage
	ShouldFail      bool            // flag to simulate failures during write or read operations
	closed          bool
}

func (m *MockKafka) WriteMessages(ctx context.Context, messages ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errors.New("mock kafka write failed")
	}
	m.WrittenMessages = append(m.WrittenMessages, messages...)
	return nil
}

// Written returns a copy of the messages written so far.
func (m *MockKafka) Written() []kafka.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]kafka.Message(nil), m.WrittenMessages...)
}

// ReadMessage pops the next queued message. An empty queue blocks until ctx
// is done, like a consumer with no new records.
func (m *MockKafka) ReadMessage(ctx context.Context) (kafka.Message, error) {
	m.mu.Lock()
	if m.ShouldFail {
		m.mu.Unlock()
		return kafka.Message{}, errors.New("mock kafka read failed")
	}
	if len(m.ReadMessages) > 0 {
		// Take the first message from the queue and remove it
		msg := m.ReadMessages[0]
		m.ReadMessages = m.ReadMessages[1:]
		m.mu.Unlock()
		return msg, nil
	}
	m.mu.Unlock()

	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

// Pending reports how many queued messages have not been read yet.
func (m *MockKafka) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ReadMessages)
}

func (m *MockKafka) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockKafka) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MockKafkaFail always fails.
type MockKafkaFail struct{}

func (m *MockKafkaFail) WriteMessages(ctx context.Context, messages ...kafka.Message) error {
	return errors.New("mock kafka write failed")
}

func (m *MockKafkaFail) ReadMessage(ctx context.Context) (kafka.Message, error) {
	return kafka.Message{}, errors.New("mock kafka read failed")
}

func (m *MockKafkaFail) Close() error { return nil }
