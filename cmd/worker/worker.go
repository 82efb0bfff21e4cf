package worker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	appkafka "example.com/tweetfeed/internal/broker"
	"example.com/tweetfeed/internal/logger"
	"example.com/tweetfeed/internal/metrics"
	"example.com/tweetfeed/internal/models"
	"example.com/tweetfeed/internal/store"
)

var logg = logger.New()

const drainTimeout = 5 * time.Second

// Store is what the worker needs from persistence.
type Store interface {
	store.StatsStore
	Close()
}

// Worker consumes domain events from Kafka and maintains per-user activity
// counters in Cassandra concurrently.
type Worker struct {
	store        Store
	reader       appkafka.KafkaReader
	workerCount  int
	jobQueueSize int
}

// New creates a new concurrent Worker using pre-initialized dependencies.
func New(store Store, reader appkafka.KafkaReader, workerCount, jobQueueSize int) *Worker {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	if jobQueueSize <= 0 {
		jobQueueSize = workerCount * 10
	}
	return &Worker{
		store:        store,
		reader:       reader,
		workerCount:  workerCount,
		jobQueueSize: jobQueueSize,
	}
}

// Run starts message reading and concurrent processing.
func (w *Worker) Run(ctx context.Context) {
	if w.workerCount <= 0 {
		w.workerCount = 1
	}
	if w.jobQueueSize <= 0 {
		w.jobQueueSize = 10
	}

	logg.Info("worker", "Starting "+fmt.Sprint(w.workerCount)+" workers with queue size "+fmt.Sprint(w.jobQueueSize))

	jobs := make(chan []byte, w.jobQueueSize)
	var wg sync.WaitGroup

	for i := 0; i < w.workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.processLoop(ctx, jobs)
		}()
	}

	w.readLoop(ctx, jobs)

	close(jobs)
	wg.Wait()
	logg.Info("worker", "All workers stopped gracefully")
}

// readLoop reads Kafka messages and pushes them into a job queue.
func (w *Worker) readLoop(ctx context.Context, jobs chan<- []byte) {
	var retry int
	for {
		select {
		case <-ctx.Done():
			return
		default:
			msg, err := w.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				backoff := time.Duration(math.Min(1000, math.Pow(2, float64(retry)))) * time.Millisecond
				logg.Error("worker", "Kafka read error, backing off", err)
				if !waitWithContext(ctx, backoff) {
					return
				}
				retry++
				continue
			}
			retry = 0

			if len(msg.Value) == 0 {
				continue
			}

			for enqueued := false; !enqueued; {
				select {
				case jobs <- msg.Value:
					enqueued = true
				case <-ctx.Done():
					return
				case <-time.After(100 * time.Millisecond):
					logg.Info("worker", "Queue full, waiting to enqueue Kafka message")
				}
			}
		}
	}
}

// processLoop applies jobs until the queue is closed. Jobs still queued when
// ctx is cancelled are applied under a short shutdown deadline. Bad events
// are logged and skipped.
func (w *Worker) processLoop(ctx context.Context, jobs <-chan []byte) {
	for data := range jobs {
		jobCtx, cancel := ctx, context.CancelFunc(func() {})
		if ctx.Err() != nil {
			jobCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), drainTimeout)
		}
		if err := w.Handle(jobCtx, data); err != nil {
			logg.Error("worker", "Failed to apply event", err)
		}
		cancel()
	}
}

// Handle decodes one message value and applies its counter deltas.
func (w *Worker) Handle(ctx context.Context, data []byte) error {
	ev, err := appkafka.DecodeEvent(data)
	if err != nil {
		metrics.EventsProcessed.WithLabelValues("unknown", "invalid").Inc()
		return err
	}

	if err := w.apply(ctx, ev); err != nil {
		metrics.EventsProcessed.WithLabelValues(string(ev.Type), "error").Inc()
		return err
	}
	metrics.EventsProcessed.WithLabelValues(string(ev.Type), "ok").Inc()
	logg.Debug("worker", "Applied "+string(ev.Type)+" event for user_id="+ev.ActorID)
	return nil
}

var errMissingTarget = errors.New("user_followed event without target_id")

func (w *Worker) apply(ctx context.Context, ev models.Event) error {
	switch ev.Type {
	case models.EventTweetCreated:
		return w.store.IncrementUserStats(ctx, ev.ActorID, models.UserStats{Tweets: 1})
	case models.EventUserFollowed:
		if ev.TargetID == "" {
			return errMissingTarget
		}
		if err := w.store.IncrementUserStats(ctx, ev.ActorID, models.UserStats{Following: 1}); err != nil {
			return err
		}
		return w.store.IncrementUserStats(ctx, ev.TargetID, models.UserStats{Followers: 1})
	default:
		return fmt.Errorf("unhandled event type %q", ev.Type)
	}
}

// waitWithContext waits for duration or context cancellation.
func waitWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Close shuts down Kafka reader and Cassandra session.
func (w *Worker) Close() error {
	logg.Info("worker", "Closing Kafka reader")
	if err := w.reader.Close(); err != nil {
		logg.Error("worker", "Error closing Kafka reader", err)
		return err
	}

	logg.Info("worker", "Closing Cassandra session")
	w.store.Close()
	return nil
}
