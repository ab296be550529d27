// Package main benchmarks the folio stats command against live GitHub.
// It runs each identity without a cache, then with a fresh SQLite cache, treating the
// first cached run as cold and averaging the rest as warm, and writes the timings to CSV.
//
// Prerequisites:
// - folio binary installed and available in PATH
// - Network access to api.github.com (set FOLIO_GITHUB_TOKEN to avoid rate limits)
//
// Usage: go run benchmark/main.go [identity...]
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (no-cache average, cold run and average of warm runs).
type BenchmarkResult struct {
	Identity    string
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	Timeout     time.Duration
	NoCacheRuns int
	CacheRuns   int
	Identities  []string
	CacheFile   string
}

func main() {
	identities := os.Args[1:]
	if len(identities) == 0 {
		identities = []string{"Jairedddy", "octocat", "torvalds"}
	}

	config := BenchmarkConfig{
		Timeout:     time.Minute,
		NoCacheRuns: 2,
		CacheRuns:   4,
		Identities:  identities,
		CacheFile:   filepath.Join(os.TempDir(), fmt.Sprintf("folio_benchmark_%d.db", time.Now().UnixNano())),
	}
	defer func() { _ = os.Remove(config.CacheFile) }()

	if _, err := exec.LookPath("folio"); err != nil {
		fmt.Printf("Prerequisites check failed: folio binary not found in PATH\n")
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// runBenchmarks executes the no-cache and cache phases for every identity
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d identities, %v timeout, no-cache: %d runs, cache: %d runs\n",
		len(config.Identities), config.Timeout, config.NoCacheRuns, config.CacheRuns)

	for _, identity := range config.Identities {
		fmt.Printf("Benchmarking %s\n", identity)

		_, noCacheTimes := runBenchmark(config, identity, "none", config.NoCacheRuns)
		coldTime, warmTimes := runBenchmark(config, identity, "sqlite", config.CacheRuns)

		result := BenchmarkResult{
			Identity:    identity,
			NoCacheTime: average(noCacheTimes),
			ColdTime:    formatSeconds(coldTime),
			WarmTime:    average(warmTimes),
		}
		fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", result.NoCacheTime, result.ColdTime, result.WarmTime)
		results = append(results, result)
	}

	return results
}

// runBenchmark executes folio stats numRuns times and returns the first time and the remaining times
func runBenchmark(config BenchmarkConfig, identity, cacheBackend string, numRuns int) (first float64, rest []float64) {
	args := []string{"stats", identity, "--cache-backend", cacheBackend, "--color", "no"}
	if cacheBackend == "sqlite" {
		args = append(args, "--cache-db-connect", config.CacheFile)
	}

	var times []float64
	for range numRuns {
		ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
		start := time.Now()
		output, err := exec.CommandContext(ctx, "folio", args...).CombinedOutput()
		elapsed := time.Since(start).Seconds()
		cancel()

		if err == nil && isSuccess(output) {
			times = append(times, elapsed)
		}
	}

	// Every no-cache run is a cold fetch
	if cacheBackend == "none" {
		return 0, times
	}
	if len(times) > 0 {
		first = times[0]
		rest = times[1:]
	}
	return first, rest
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte) bool {
	return strings.Contains(string(output), "Completed in")
}

func average(times []float64) string {
	if len(times) == 0 {
		return "FAILED"
	}
	var sum float64
	for _, t := range times {
		sum += t
	}
	return formatSeconds(sum / float64(len(times)))
}

func formatSeconds(s float64) string {
	if s <= 0 {
		return "FAILED"
	}
	return fmt.Sprintf("%.3fs", s)
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("folio_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"identity", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{result.Identity, result.NoCacheTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, result := range results {
		fmt.Printf("  %-12s: No-cache: %s, Cold: %s, Warm: %s\n", result.Identity, result.NoCacheTime, result.ColdTime, result.WarmTime)
	}
}
