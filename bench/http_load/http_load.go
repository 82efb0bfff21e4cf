package main

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"example.com/tweetfeed/bench/latency"
)

type envelope struct {
	Data json.RawMessage `json:"data"`
}

type userData struct {
	ID string `json:"id"`
}

func main() {
	// --- Command-line flags ---
	var server string
	var duration int
	var concurrency int
	var follows int
	var readRatio float64
	var csvFile string
	var insecure bool

	flag.StringVar(&server, "server", "http://localhost:8080", "server base URL")
	flag.IntVar(&duration, "duration", 30, "duration in seconds")
	flag.IntVar(&concurrency, "c", 50, "number of concurrent goroutines / users")
	flag.IntVar(&follows, "follows", 10, "followees per user")
	flag.Float64Var(&readRatio, "reads", 0.8, "fraction of requests that read a timeline")
	flag.StringVar(&csvFile, "csv", "latencies.csv", "CSV file to save latencies")
	flag.BoolVar(&insecure, "insecure", false, "skip TLS verification for self-signed certs")
	flag.Parse()

	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig:     &tls.Config{InsecureSkipVerify: insecure},
			MaxIdleConnsPerHost: concurrency,
		},
		Timeout: 10 * time.Second,
	}

	// --- Create users for each goroutine ---
	fmt.Printf("Creating %d users...\n", concurrency)
	users := make([]string, concurrency)
	run := time.Now().UnixNano()
	for i := range users {
		name := fmt.Sprintf("load-%d-%d", i, run)
		var u userData
		if err := postJSON(client, server+"/users", map[string]string{"username": name, "email": name + "@example.com"}, &u); err != nil {
			panic(fmt.Sprintf("failed to create user: %v", err))
		}
		users[i] = u.ID
	}

	// --- Build the follow graph ---
	for i, follower := range users {
		for j := 1; j <= follows && j < len(users); j++ {
			target := users[(i+j)%len(users)]
			if err := postJSON(client, server+"/users/"+target+"/follow", map[string]string{"follower_id": follower}, nil); err != nil {
				panic(fmt.Sprintf("failed to follow: %v", err))
			}
		}
	}
	fmt.Println("Users and follows created.")

	// --- Prepare concurrency test ---
	stopTime := time.Now().Add(time.Duration(duration) * time.Second)
	var wg sync.WaitGroup

	// Atomic counters for thread-safe tracking
	var requests, successes, errors4xx, errors5xx int64

	writeLat := make([][]float64, concurrency)
	readLat := make([][]float64, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			userID := users[idx]
			rnd := rand.New(rand.NewSource(int64(idx)))

			for time.Now().Before(stopTime) {
				var req *http.Request
				isRead := rnd.Float64() < readRatio
				if isRead {
					req, _ = http.NewRequestWithContext(context.Background(), http.MethodGet, server+"/users/"+userID+"/timeline", nil)
				} else {
					b, _ := json.Marshal(map[string]string{"author_id": userID, "text": fmt.Sprintf("load test tweet %d", time.Now().UnixNano())})
					req, _ = http.NewRequestWithContext(context.Background(), http.MethodPost, server+"/tweets", bytes.NewReader(b))
					req.Header.Set("Content-Type", "application/json")
				}

				start := time.Now()
				resp, err := client.Do(req)
				lat := time.Since(start).Seconds() * 1000 // latency in ms
				atomic.AddInt64(&requests, 1)
				if isRead {
					readLat[idx] = append(readLat[idx], lat)
				} else {
					writeLat[idx] = append(writeLat[idx], lat)
				}

				if err != nil {
					fmt.Printf("Request error: %v\n", err)
					continue
				}

				// Count success/failure by status code
				switch {
				case resp.StatusCode >= 200 && resp.StatusCode < 300:
					atomic.AddInt64(&successes, 1)
					_, _ = io.Copy(io.Discard, resp.Body)
				case resp.StatusCode >= 500:
					atomic.AddInt64(&errors5xx, 1)
					body, _ := io.ReadAll(resp.Body)
					fmt.Printf("Status %d: %s\n", resp.StatusCode, string(body))
				default:
					atomic.AddInt64(&errors4xx, 1)
					_, _ = io.Copy(io.Discard, resp.Body)
				}
				resp.Body.Close()
			}
		}(i)
	}

	wg.Wait()

	// --- Merge all latencies ---
	var reads, writes []float64
	for i := range users {
		reads = append(reads, readLat[i]...)
		writes = append(writes, writeLat[i]...)
	}

	fmt.Printf("Requests: %d  Successes: %d  4xx: %d  5xx: %d\n", requests, successes, errors4xx, errors5xx)
	fmt.Println(latency.Summary("POST /tweets", writes))
	fmt.Println(latency.Summary("GET timeline", reads))

	// --- Save latencies to CSV ---
	if err := latency.WriteCSV(csvFile, append(writes, reads...)); err != nil {
		fmt.Printf("Failed to write CSV file: %v\n", err)
		return
	}
	fmt.Printf("Saved latencies to %s\n", csvFile)
}

// postJSON sends body and decodes the envelope's data into out when non-nil.
func postJSON(client *http.Client, url string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(msg))
	}
	if out == nil {
		return nil
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return err
	}
	return json.Unmarshal(env.Data, out)
}
