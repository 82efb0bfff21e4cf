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
	"os"
	"sync"
	"time"

	"example.com/tweetfeed/bench/latency"
	"example.com/tweetfeed/internal/models"
)

type envelope[T any] struct {
	Data T `json:"data"`
}

type client struct {
	http *http.Client
	base string
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, string(msg))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// This bench measures two paths: a tweet becoming visible in follower
// timelines (synchronous, read-time fan-out) and the stats worker catching up
// on the author's tweet counter (asynchronous, via Kafka).
func main() {
	// CLI flags
	var serverAddr string
	var U, F, P, concurrency int
	var pollTimeout int
	var insecure bool

	flag.StringVar(&serverAddr, "server", "http://localhost:8080", "server base URL")
	flag.IntVar(&U, "users", 50, "number of users to create")
	flag.IntVar(&F, "follows", 10, "average follows per user")
	flag.IntVar(&P, "tweets", 100, "number of tweets to publish")
	flag.IntVar(&concurrency, "c", 20, "concurrency for posting")
	flag.IntVar(&pollTimeout, "timeout", 10, "seconds to wait for stats to catch up")
	flag.BoolVar(&insecure, "insecure", false, "skip TLS verification for self-signed certs")
	flag.Parse()

	ctx := context.Background()
	c := &client{
		http: &http.Client{
			Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: insecure}},
			Timeout:   10 * time.Second,
		},
		base: serverAddr,
	}

	// --- 1) Create users ---
	fmt.Printf("Creating %d users...\n", U)
	users := make([]string, 0, U)
	for i := 0; i < U; i++ {
		name := fmt.Sprintf("user-%d-%d", i, time.Now().UnixNano())
		var env envelope[models.User]
		if err := c.do(ctx, http.MethodPost, "/users", map[string]string{"username": name, "email": name + "@example.com"}, &env); err != nil {
			fmt.Printf("create user error: %v\n", err)
			os.Exit(1)
		}
		users = append(users, env.Data.ID)
	}

	// --- 2) Create follow relationships between users ---
	fmt.Printf("Creating follows (~%d per user)...\n", F)
	followers := make(map[string]map[string]struct{})
	for _, u := range users {
		for j := 0; j < F; j++ {
			target := users[rand.Intn(len(users))]
			if target == u {
				continue
			}
			if err := c.do(ctx, http.MethodPost, "/users/"+target+"/follow", map[string]string{"follower_id": u}, nil); err != nil {
				fmt.Printf("follow error: %v\n", err)
				os.Exit(1)
			}
			if followers[target] == nil {
				followers[target] = make(map[string]struct{})
			}
			followers[target][u] = struct{}{}
		}
	}

	// --- 3) Publish tweets concurrently ---
	fmt.Printf("Publishing %d tweets with concurrency %d...\n", P, concurrency)
	type tweetRecord struct {
		models.Tweet
		Acked time.Time
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)
	tweetsCh := make(chan tweetRecord, P)

	for i := 0; i < P; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			author := users[rand.Intn(len(users))]
			var env envelope[models.Tweet]
			body := map[string]string{"author_id": author, "text": fmt.Sprintf("tweet %d", rand.Int())}
			if err := c.do(ctx, http.MethodPost, "/tweets", body, &env); err != nil {
				fmt.Printf("tweet error: %v\n", err)
				return
			}
			tweetsCh <- tweetRecord{Tweet: env.Data, Acked: time.Now()}
		}()
	}
	wg.Wait()
	close(tweetsCh)

	perAuthor := make(map[string][]tweetRecord)
	for tr := range tweetsCh {
		perAuthor[tr.AuthorID] = append(perAuthor[tr.AuthorID], tr)
	}

	// --- 4) Timelines must show every tweet on the first read ---
	fmt.Println("Checking timeline visibility...")
	var misses, checks int
	for author, tweets := range perAuthor {
		for fid := range followers[author] {
			var env envelope[[]models.Tweet]
			if err := c.do(ctx, http.MethodGet, "/users/"+fid+"/timeline", nil, &env); err != nil {
				fmt.Printf("timeline error: %v\n", err)
				continue
			}
			seen := make(map[string]struct{}, len(env.Data))
			for _, t := range env.Data {
				seen[t.ID] = struct{}{}
			}
			for _, tr := range tweets {
				checks++
				if _, ok := seen[tr.ID]; !ok {
					misses++
				}
			}
		}
	}
	fmt.Printf("Timeline checks: %d misses: %d\n", checks, misses)

	// --- 5) Wait for the stats worker to count every tweet ---
	fmt.Println("Waiting for stats worker...")
	var latencies []float64
	var latMu sync.Mutex
	var failCount int
	var checksWg sync.WaitGroup

	for author, tweets := range perAuthor {
		checksWg.Add(1)
		go func(author string, tweets []tweetRecord) {
			defer checksWg.Done()
			var lastAck time.Time
			for _, tr := range tweets {
				if tr.Acked.After(lastAck) {
					lastAck = tr.Acked
				}
			}

			deadline := time.Now().Add(time.Duration(pollTimeout) * time.Second)
			for time.Now().Before(deadline) {
				var env envelope[models.UserProfile]
				if err := c.do(ctx, http.MethodGet, "/users/"+author, nil, &env); err == nil &&
					env.Data.Stats.Tweets >= int64(len(tweets)) {
					latMu.Lock()
					latencies = append(latencies, time.Since(lastAck).Seconds()*1000)
					latMu.Unlock()
					return
				}
				time.Sleep(100 * time.Millisecond)
			}

			latMu.Lock()
			failCount++
			latMu.Unlock()
		}(author, tweets)
	}
	checksWg.Wait()

	// --- 6) Compute latency statistics and export to CSV ---
	if len(latencies) == 0 {
		fmt.Println("No stats updates observed; is the worker running?")
		return
	}
	fmt.Println(latency.Summary("Stats catch-up", latencies), "fails="+fmt.Sprint(failCount))
	if err := latency.WriteCSV("e2e_latencies.csv", latencies); err != nil {
		fmt.Printf("Failed to write CSV: %v\n", err)
		return
	}
	fmt.Println("Saved e2e_latencies.csv")
}
