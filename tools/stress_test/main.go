package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-zeromq/zmq4"
	"github.com/rs/zerolog"

	"github.com/VanDung-dev/hierasock/api"
	"github.com/VanDung-dev/hierasock/logging"
	"github.com/VanDung-dev/hierasock/sock"
)

// echoPicture is the request and reply layout: sequence, worker tag, payload.
const echoPicture = "isb"

// StressTestConfig holds configuration for the stress test.
type StressTestConfig struct {
	Host        string
	Concurrency int
	Duration    time.Duration
	PayloadSize int
	MetricsAddr string
	LogLevel    string
	ReportFile  string
}

// StressTestResult holds the results of a stress test.
type StressTestResult struct {
	TotalRequests  int64
	SuccessfulReqs int64
	FailedReqs     int64
	TotalDuration  time.Duration
	AvgLatency     time.Duration
	MinLatency     time.Duration
	MaxLatency     time.Duration
	RequestsPerSec float64
}

type counters struct {
	total, success, failed int64
	latencySum             int64
	minLatency, maxLatency int64
}

func main() {
	config := parseFlags()
	logger := logging.New("stress_test", logging.Config{Level: config.LogLevel})

	fmt.Println("=== hierasock REQ/REP Stress Test ===")
	fmt.Printf("Host: %s (ports %d-%d)\n", config.Host, sock.DynamicFirst, sock.DynamicLast)
	fmt.Printf("Concurrency: %d workers\n", config.Concurrency)
	fmt.Printf("Duration: %v\n", config.Duration)
	fmt.Printf("Payload: %d bytes\n", config.PayloadSize)
	fmt.Println()

	opts := []sock.Option{sock.WithLogger(logger)}
	if config.MetricsAddr != "" {
		opts = append(opts, sock.WithObserver(api.NewMetrics("hierasock")))
		server := api.NewMetricsServer(config.MetricsAddr)
		server.StartAsync()
		defer server.Stop()
	}

	result := runStressTest(config, logger, opts)

	printResults(result)

	if config.ReportFile != "" {
		saveReport(config, result, logger)
	}
}

func parseFlags() StressTestConfig {
	config := StressTestConfig{}

	flag.StringVar(&config.Host, "host", "127.0.0.1", "Interface to bind echo servers on")
	flag.IntVar(&config.Concurrency, "c", 10, "Number of concurrent workers")
	flag.DurationVar(&config.Duration, "d", 30*time.Second, "Duration of test")
	flag.IntVar(&config.PayloadSize, "size", 256, "Payload size in bytes")
	flag.StringVar(&config.MetricsAddr, "metrics", "", "Serve Prometheus metrics on this address")
	flag.StringVar(&config.LogLevel, "log-level", "warn", "Log level")
	flag.StringVar(&config.ReportFile, "o", "", "Output report file (JSON)")

	flag.Parse()

	return config
}

func runStressTest(config StressTestConfig, logger zerolog.Logger, opts []sock.Option) StressTestResult {
	var (
		c        = counters{minLatency: 1<<63 - 1}
		wg       sync.WaitGroup
		stopChan = make(chan struct{})
	)

	startTime := time.Now()

	// Start workers
	for i := 0; i < config.Concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			if err := runWorker(workerID, config, opts, stopChan, &c); err != nil {
				logger.Error().Err(err).Int("worker", workerID).Msg("worker failed")
			}
		}(i)
	}

	// Wait for duration
	time.Sleep(config.Duration)
	close(stopChan)
	wg.Wait()

	duration := time.Since(startTime)
	total := atomic.LoadInt64(&c.total)
	success := atomic.LoadInt64(&c.success)
	minLat := atomic.LoadInt64(&c.minLatency)
	if success == 0 {
		minLat = 0
	}

	var avgLatency time.Duration
	if success > 0 {
		avgLatency = time.Duration(atomic.LoadInt64(&c.latencySum) / success)
	}

	return StressTestResult{
		TotalRequests:  total,
		SuccessfulReqs: success,
		FailedReqs:     atomic.LoadInt64(&c.failed),
		TotalDuration:  duration,
		AvgLatency:     avgLatency,
		MinLatency:     time.Duration(minLat),
		MaxLatency:     time.Duration(atomic.LoadInt64(&c.maxLatency)),
		RequestsPerSec: float64(total) / duration.Seconds(),
	}
}

// runWorker drives one REQ socket against its own REP echo server bound on an
// ephemeral port.
func runWorker(id int, config StressTestConfig, opts []sock.Option, stop chan struct{}, c *counters) error {
	ctx := context.Background()

	server, err := sock.NewRep(ctx, fmt.Sprintf("tcp://%s:*", config.Host), opts...)
	if err != nil {
		return err
	}
	defer server.Destroy()

	client, err := sock.NewReq(ctx, server.Endpoint(), opts...)
	if err != nil {
		return err
	}
	defer client.Destroy()

	// the echo goroutine owns the native socket; Destroy unblocks it on early
	// return
	done := make(chan struct{})
	go func() {
		defer close(done)
		echo(server.Resolve())
	}()

	payload := bytes.Repeat([]byte{byte(id)}, config.PayloadSize)
	tag := fmt.Sprintf("worker-%d", id)

	for seq := 0; ; seq++ {
		select {
		case <-stop:
			// the echo server exits after replying to ActorTerm
			if err := client.Send(zmq4.NewMsgString(sock.ActorTerm)); err == nil {
				_, _ = client.Recv()
			}
			<-done
			return nil
		default:
		}

		latency, err := roundTrip(client, seq, tag, payload)
		atomic.AddInt64(&c.total, 1)
		if err != nil {
			atomic.AddInt64(&c.failed, 1)
			// REQ cannot recover from a lost reply
			return err
		}

		atomic.AddInt64(&c.success, 1)
		atomic.AddInt64(&c.latencySum, int64(latency))

		// Update min/max latency
		lat := int64(latency)
		for {
			old := atomic.LoadInt64(&c.minLatency)
			if lat >= old || atomic.CompareAndSwapInt64(&c.minLatency, old, lat) {
				break
			}
		}
		for {
			old := atomic.LoadInt64(&c.maxLatency)
			if lat <= old || atomic.CompareAndSwapInt64(&c.maxLatency, old, lat) {
				break
			}
		}
	}
}

func roundTrip(client *sock.Handle, seq int, tag string, payload []byte) (time.Duration, error) {
	start := time.Now()

	if err := client.SendPicture(echoPicture, sock.Int(seq), sock.Str(tag), sock.Bytes(payload)); err != nil {
		return 0, err
	}
	reply, err := client.RecvPicture(echoPicture)
	latency := time.Since(start)
	if err != nil {
		return 0, err
	}

	if reply.Int(0) != seq || reply.Str(1) != tag || !bytes.Equal(reply.Bytes(2), payload) {
		return 0, errors.New("reply does not match request")
	}
	return latency, nil
}

// echo returns every request to its sender until it receives ActorTerm.
func echo(server sock.Conn) {
	for {
		msg, err := server.Recv()
		if err != nil {
			return
		}
		if err := server.Send(msg); err != nil {
			return
		}
		if len(msg.Frames) == 1 && string(msg.Frames[0]) == sock.ActorTerm {
			return
		}
	}
}

func printResults(result StressTestResult) {
	fmt.Println("=== Results ===")
	fmt.Printf("Duration:        %v\n", result.TotalDuration.Round(time.Millisecond))
	fmt.Printf("Total Requests:  %d\n", result.TotalRequests)
	if result.TotalRequests > 0 {
		fmt.Printf("Successful:      %d (%.2f%%)\n", result.SuccessfulReqs, float64(result.SuccessfulReqs)/float64(result.TotalRequests)*100)
		fmt.Printf("Failed:          %d (%.2f%%)\n", result.FailedReqs, float64(result.FailedReqs)/float64(result.TotalRequests)*100)
	}
	fmt.Printf("Requests/sec:    %.2f\n", result.RequestsPerSec)
	fmt.Printf("Avg Latency:     %v\n", result.AvgLatency.Round(time.Microsecond))
	fmt.Printf("Min Latency:     %v\n", result.MinLatency.Round(time.Microsecond))
	fmt.Printf("Max Latency:     %v\n", result.MaxLatency.Round(time.Microsecond))
}

func saveReport(config StressTestConfig, result StressTestResult, logger zerolog.Logger) {
	report := map[string]interface{}{
		"config": map[string]interface{}{
			"host":         config.Host,
			"concurrency":  config.Concurrency,
			"duration":     config.Duration.String(),
			"payload_size": config.PayloadSize,
		},
		"results": map[string]interface{}{
			"total_requests":   result.TotalRequests,
			"successful":       result.SuccessfulReqs,
			"failed":           result.FailedReqs,
			"requests_per_sec": result.RequestsPerSec,
			"avg_latency_ms":   float64(result.AvgLatency.Microseconds()) / 1000,
			"min_latency_ms":   float64(result.MinLatency.Microseconds()) / 1000,
			"max_latency_ms":   float64(result.MaxLatency.Microseconds()) / 1000,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		logger.Error().Err(err).Msg("failed to encode report")
		return
	}
	if err := os.WriteFile(config.ReportFile, data, 0644); err != nil {
		logger.Error().Err(err).Msg("failed to write report")
	} else {
		fmt.Printf("Report saved to: %s\n", config.ReportFile)
	}
}
