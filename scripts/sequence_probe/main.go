// Command sequence_probe hammers the number registry with concurrent claim
// requests and verifies that no identifier is issued twice. Intended to be
// run against a staging deployment before rollout, not in CI.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

type claimResult struct {
	Number   string
	Status   int
	Duration time.Duration
	Err      error
}

type envelope struct {
	Data struct {
		Number string `json:"number"`
	} `json:"data"`
}

func main() {
	baseURL := flag.String("base-url", "http://localhost:8080", "API base URL")
	prefix := flag.String("api-prefix", "/api/v1", "API route prefix")
	kind := flag.String("kind", "receipt", "number kind to claim")
	token := flag.String("token", os.Getenv("PROBE_TOKEN"), "bearer token")
	workers := flag.Int("workers", 16, "concurrent claimers")
	perWorker := flag.Int("per-worker", 25, "claims per worker")
	flag.Parse()

	if *token == "" {
		log.Fatal("a bearer token is required (flag -token or PROBE_TOKEN)")
	}

	url := strings.TrimRight(*baseURL, "/") + *prefix + "/sequences/" + *kind + "/next"
	client := &http.Client{Timeout: 10 * time.Second}

	results := make([]claimResult, *workers**perWorker)
	var wg sync.WaitGroup
	start := time.Now()
	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < *perWorker; i++ {
				results[w**perWorker+i] = claim(client, url, *token)
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	seen := map[string]int{}
	var failures, claimed int
	var totalLatency time.Duration
	for _, r := range results {
		if r.Err != nil || r.Status != http.StatusOK {
			failures++
			continue
		}
		claimed++
		seen[r.Number]++
		totalLatency += r.Duration
	}

	var duplicates []string
	for number, count := range seen {
		if count > 1 {
			duplicates = append(duplicates, fmt.Sprintf("%s x%d", number, count))
		}
	}
	sort.Strings(duplicates)

	fmt.Printf("claims:     %d ok, %d failed in %s\n", claimed, failures, elapsed.Round(time.Millisecond))
	if claimed > 0 {
		fmt.Printf("latency:    %s avg\n", (totalLatency / time.Duration(claimed)).Round(time.Millisecond))
	}
	if len(duplicates) > 0 {
		fmt.Printf("DUPLICATES: %s\n", strings.Join(duplicates, ", "))
		os.Exit(1)
	}
	fmt.Println("no duplicate identifiers issued")
}

func claim(client *http.Client, url, token string) claimResult {
	req, err := http.NewRequest(http.MethodPost, url, nil)
	if err != nil {
		return claimResult{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(start)
	if err != nil {
		return claimResult{Err: err, Duration: duration}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return claimResult{Status: resp.StatusCode, Err: err, Duration: duration}
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return claimResult{Status: resp.StatusCode, Err: err, Duration: duration}
	}
	return claimResult{Number: env.Data.Number, Status: resp.StatusCode, Duration: duration}
}
