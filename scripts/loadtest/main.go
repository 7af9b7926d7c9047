// Loadtest is a small concurrent request generator for exercising the proxy.
//
// Usage:
//
//	go run ./scripts/loadtest -url http://localhost:1100/echo -concurrency 10 -requests 1000
//
// It reports a status-code histogram, which makes rate limiting (429s) and
// failover behavior (502s) visible at a glance.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"
)

func main() {
	url := flag.String("url", "http://localhost:1100/echo", "URL to request")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	requests := flag.Int("requests", 1000, "total number of requests")
	flag.Parse()

	var (
		mutex    sync.Mutex
		statuses = make(map[int]int)
		failures int
	)

	jobs := make(chan struct{}, *requests)
	for i := 0; i < *requests; i++ {
		jobs <- struct{}{}
	}
	close(jobs)

	start := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for range jobs {
				resp, err := client.Get(*url)

				mutex.Lock()
				if err != nil {
					failures++
				} else {
					statuses[resp.StatusCode]++
				}
				mutex.Unlock()

				if err == nil {
					io.Copy(io.Discard, resp.Body)
					resp.Body.Close()
				}
			}
		}()
	}
	wg.Wait()

	elapsed := time.Since(start)

	log.Printf("%d requests in %s (%.1f req/s)", *requests, elapsed, float64(*requests)/elapsed.Seconds())

	codes := make([]int, 0, len(statuses))
	for code := range statuses {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, statuses[code])
	}
	if failures > 0 {
		fmt.Printf("  transport failures: %d\n", failures)
	}
}
