// Package main provides a standalone health probe for the food-data API.
// It is intended for Docker HEALTHCHECK directives and monitoring scripts.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"
)

const (
	exitCodeSuccess = 0
	exitCodeFailure = 1
	exitCodeError   = 2
)

func main() {
	var (
		url     = flag.String("url", "http://localhost:8080/health", "Health endpoint URL")
		timeout = flag.Duration("timeout", 5*time.Second, "Request timeout")
		verbose = flag.Bool("verbose", false, "Print the health payload")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, *url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "health-check: %v\n", err)
		os.Exit(exitCodeError)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "health-check: %v\n", err)
		os.Exit(exitCodeFailure)
	}
	defer resp.Body.Close()

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		fmt.Fprintf(os.Stderr, "health-check: invalid response: %v\n", err)
		os.Exit(exitCodeFailure)
	}

	if *verbose {
		fmt.Printf("status=%s http=%d\n", payload.Status, resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK || payload.Status != "ok" {
		fmt.Fprintf(os.Stderr, "health-check: unhealthy (http %d, status %q)\n", resp.StatusCode, payload.Status)
		os.Exit(exitCodeFailure)
	}
	os.Exit(exitCodeSuccess)
}
