package kv

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rkv-io/rkv/cmd/util"
	"github.com/rkv-io/rkv/rpc/client"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for rKV servers",
		Long:    "",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfOpsPerThread     = 1000
	perfSkip             = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of concurrent connections to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the set-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "ops"
	perfTestCmd.Flags().Int(key, 1000, util.WrapString("Number of operations per thread and benchmark"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfOpsPerThread = viper.GetInt("ops")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for rKV servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Printf("Ops/Thread: %d\n", perfOpsPerThread)
	fmt.Println()

	fmt.Println("starting tests...")
	fmt.Println()
	printHeader()

	// One timer per benchmark, collecting the latency distribution
	results := make(map[string]gometrics.Timer)

	smallValue := []byte("test")
	largeValue := make([]byte, perfLargeValueSizeKB*1024)

	benchmarks := []struct {
		name string
		op   func(c *client.Client, i int) error
	}{
		{"set", func(c *client.Client, i int) error {
			return c.Set(benchKey("set", i), smallValue)
		}},
		{"set-large", func(c *client.Client, i int) error {
			return c.Set(benchKey("set-large", i), largeValue)
		}},
		{"get", func(c *client.Client, i int) error {
			_, _, err := c.Get(benchKey("set", i))
			return err
		}},
		{"get-missing", func(c *client.Client, i int) error {
			_, _, err := c.Get(benchKey("never-written", i))
			return err
		}},
		{"mixed", func(c *client.Client, i int) error {
			if i%2 == 0 {
				return c.Set(benchKey("mixed", i), smallValue)
			}
			_, _, err := c.Get(benchKey("mixed", i))
			return err
		}},
	}

	for _, bench := range benchmarks {
		if shouldSkip(bench.name) {
			fmt.Printf("%-16sskipped\n", bench.name)
			continue
		}

		timer, err := runBenchmark(bench.op)
		if err != nil {
			return fmt.Errorf("benchmark %s failed: %v", bench.name, err)
		}
		results[bench.name] = timer
		printResult(bench.name, timer)
	}

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// runBenchmark runs op from perfNumThreads connections in parallel and
// records every call in a shared timer.
func runBenchmark(op func(c *client.Client, i int) error) (gometrics.Timer, error) {
	timer := gometrics.NewTimer()

	config := util.GetClientConfig()
	connector, err := util.GetClientConnector()
	if err != nil {
		return nil, err
	}

	errCh := make(chan error, perfNumThreads)
	var wg sync.WaitGroup
	for t := 0; t < perfNumThreads; t++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			c, err := client.Connect(*config, connector)
			if err != nil {
				errCh <- err
				return
			}
			defer c.Close()

			for i := 0; i < perfOpsPerThread; i++ {
				start := time.Now()
				if err := op(c, i); err != nil {
					errCh <- err
					return
				}
				timer.UpdateSince(start)
			}
		}()
	}
	wg.Wait()

	select {
	case err := <-errCh:
		return nil, err
	default:
		return timer, nil
	}
}

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// benchKey maps an op index onto the configured key spread.
func benchKey(prefix string, i int) string {
	return fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i%perfKeySpread)
}

func printHeader() {
	fmt.Printf("%-16s%12s%12s%12s%12s%14s\n", "test", "mean", "p50", "p95", "p99", "ops/sec")
}

// printResult prints one benchmark's latency distribution
func printResult(test string, timer gometrics.Timer) {
	ps := timer.Percentiles([]float64{0.5, 0.95, 0.99})
	fmt.Printf("%-16s%12s%12s%12s%12s%14.0f\n",
		test,
		time.Duration(timer.Mean()),
		time.Duration(ps[0]),
		time.Duration(ps[1]),
		time.Duration(ps[2]),
		timer.RateMean(),
	)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]gometrics.Timer) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	config := util.GetClientConfig()

	// Write header
	header := []string{
		"Test", "Count", "MeanNs", "P50Ns", "P95Ns", "P99Ns", "OpsPerSec",
		"Endpoint", "TimeoutSec", "RetryCount", "Transport",
		"Threads", "OpsPerThread", "LargeValueSizeKB", "KeysCount",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, timer := range results {
		ps := timer.Percentiles([]float64{0.5, 0.95, 0.99})
		row := []string{
			test,
			strconv.FormatInt(timer.Count(), 10),
			fmt.Sprintf("%.0f", timer.Mean()),
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			fmt.Sprintf("%.0f", ps[2]),
			fmt.Sprintf("%.0f", timer.RateMean()),
			config.Transport.Endpoint,
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.RetryCount),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfOpsPerThread),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
