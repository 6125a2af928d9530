// Package main provides a performance benchmarking tool for the triad CLI.
// It measures analyze times across repositories of different sizes,
// comparing parallel agents against sequential agents and in-memory runs against persisted runs,
// and writes CSV output for performance analysis and documentation.
//
// Prerequisites:
// - triad binary installed and available in PATH
// - Test repositories cloned to the specified base directory
// - Git repositories: csv-parser, fd, git, kubernetes
//
// Usage: go run benchmark/main.go [repo-base-dir]
//
//	repo-base-dir: Directory containing test repositories
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

// BenchmarkResult holds the average times of one repository for each analyze mode.
type BenchmarkResult struct {
	Repository     string
	ParallelTime   string
	SequentialTime string
	PersistedTime  string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	RepoBase  string
	Timeout   time.Duration
	Workers   int
	Runs      int
	TestRepos []string
}

// benchmarkMode is one way of invoking triad analyze.
type benchmarkMode struct {
	name string
	args []string
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [repo-base-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		RepoBase:  os.Args[1],
		Timeout:   5 * time.Minute,
		Workers:   6,
		Runs:      3,
		TestRepos: []string{"csv-parser", "fd", "git", "kubernetes"},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	dbDir, err := os.MkdirTemp("", "triad-benchmark-")
	if err != nil {
		fmt.Printf("Failed to create temp dir: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = os.RemoveAll(dbDir) }()

	results := runBenchmarks(config, dbDir)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the triad binary and test repositories exist
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("triad"); err != nil {
		return fmt.Errorf("triad binary not found in PATH")
	}

	for _, repo := range config.TestRepos {
		repoPath := filepath.Join(config.RepoBase, repo)
		if _, err := os.Stat(repoPath); os.IsNotExist(err) {
			return fmt.Errorf("repository %s not found at %s", repo, repoPath)
		}
	}

	return nil
}

// runBenchmarks times every analyze mode on every configured repository
func runBenchmarks(config BenchmarkConfig, dbDir string) []BenchmarkResult {
	fmt.Printf("Starting benchmark: %d repos, %v timeout, %d workers, %d runs per mode\n",
		len(config.TestRepos), config.Timeout, config.Workers, config.Runs)

	workers := fmt.Sprintf("%d", config.Workers)
	var results []BenchmarkResult
	for _, repo := range config.TestRepos {
		fmt.Printf("Benchmarking %s\n", repo)
		repoPath := filepath.Join(config.RepoBase, repo)

		modes := []benchmarkMode{
			{name: "parallel", args: []string{"--report-backend", "none", "--workers", workers}},
			{name: "sequential", args: []string{"--report-backend", "none", "--sequential"}},
			{name: "persisted", args: []string{
				"--report-backend", "sqlite",
				"--report-db-connect", filepath.Join(dbDir, repo+".db"),
				"--workers", workers,
			}},
		}

		averages := make(map[string]string, len(modes))
		for _, mode := range modes {
			fmt.Printf("  %s mode (%d runs)\n", mode.name, config.Runs)
			averages[mode.name] = average(runBenchmark(config, repoPath, mode.args))
		}
		fmt.Printf("  Parallel: %s, Sequential: %s, Persisted: %s\n",
			averages["parallel"], averages["sequential"], averages["persisted"])

		results = append(results, BenchmarkResult{
			Repository:     repo,
			ParallelTime:   averages["parallel"],
			SequentialTime: averages["sequential"],
			PersistedTime:  averages["persisted"],
		})
	}

	return results
}

// runBenchmark executes triad analyze several times and returns the times of the successful runs
func runBenchmark(config BenchmarkConfig, repoPath string, modeArgs []string) []float64 {
	args := append([]string{"analyze", repoPath}, modeArgs...)

	var times []float64
	for range config.Runs {
		ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
		start := time.Now()
		output, err := exec.CommandContext(ctx, "triad", args...).CombinedOutput()
		elapsed := time.Since(start).Seconds()
		cancel()

		if err == nil && isSuccess(output) {
			times = append(times, elapsed)
		}
	}
	return times
}

func average(times []float64) string {
	if len(times) == 0 {
		return "TIMEOUT"
	}
	var sum float64
	for _, t := range times {
		sum += t
	}
	return fmt.Sprintf("%.3fs", sum/float64(len(times)))
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte) bool {
	outputStr := string(output)
	return strings.Contains(outputStr, "Analysis completed in") &&
		strings.Contains(outputStr, "Report backend")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/triad_benchmark_%s.csv", timestamp)

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

	if err := writer.Write([]string{"repo", "parallel_avg", "sequential_avg", "persisted_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, result := range results {
		if err := writer.Write([]string{result.Repository, result.ParallelTime, result.SequentialTime, result.PersistedTime}); err != nil {
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
		fmt.Printf("  %-12s: Parallel: %s, Sequential: %s, Persisted: %s\n",
			result.Repository, result.ParallelTime, result.SequentialTime, result.PersistedTime)
	}
	fmt.Printf("Benchmark script completed successfully\n")
}
