package main

import (
	"context"
	"flag"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gocql/gocql"

	appkafka "example.com/tweetfeed/internal/broker"
	"example.com/tweetfeed/internal/models"
)

// Floods the events topic with tweet_created events so the stats worker's
// throughput can be measured in isolation from the HTTP server.
func main() {
	var total, numWorkers, authors int
	var broker, topic string

	flag.IntVar(&total, "n", 100000, "total number of events to send")
	flag.IntVar(&numWorkers, "c", 4, "number of parallel goroutines")
	flag.IntVar(&authors, "authors", 100, "distinct author ids to spread events over")
	flag.StringVar(&broker, "broker", "localhost:29092", "Kafka broker address")
	flag.StringVar(&topic, "topic", "tweetfeed-events", "events topic")
	flag.Parse()

	w, err := appkafka.NewKafkaWriter(appkafka.KafkaConfig{
		Brokers:      []string{broker},
		Topic:        topic,
		WriteTimeout: 10 * time.Second,
	})
	if err != nil {
		panic(fmt.Sprintf("kafka writer: %v", err))
	}
	defer w.Close()
	pub := appkafka.NewPublisher(w)

	// Random author ids; the worker counts them whether or not the users exist
	authorIDs := make([]string, authors)
	for i := range authorIDs {
		authorIDs[i] = gocql.TimeUUID().String()
	}
	start := time.Now()

	var successCount uint64
	var failCount uint64

	// Channel for feeding event indexes to worker goroutines
	jobs := make(chan int, numWorkers*10)
	var wg sync.WaitGroup

	// --- Start worker goroutines ---
	for wID := 0; wID < numWorkers; wID++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				ev := models.Event{
					Type:    models.EventTweetCreated,
					ActorID: authorIDs[i%len(authorIDs)],
					TweetID: gocql.TimeUUID().String(),
				}
				if err := pub.Publish(context.Background(), ev); err != nil {
					atomic.AddUint64(&failCount, 1)
					fmt.Printf("publish error: %v\n", err)
					continue
				}
				atomic.AddUint64(&successCount, 1)
			}
		}()
	}

	for i := 0; i < total; i++ {
		jobs <- i
	}
	close(jobs)

	// Wait for all worker goroutines to finish
	wg.Wait()

	// --- Benchmark results ---
	elapsed := time.Since(start)
	fmt.Printf("Total events: %d\n", total)
	fmt.Printf("Successful: %d, Failed: %d\n", successCount, failCount)
	fmt.Printf("Elapsed time: %s\n", elapsed)
	fmt.Printf("Throughput: %.2f msg/s\n", float64(successCount)/elapsed.Seconds())
}
