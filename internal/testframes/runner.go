package testframes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/blinkwatch/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete frame test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting blinkwatch frame test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("sessions", config.NumSessions),
		logger.Int("blinksPerSession", config.NumBlinks),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate scripted frame sequences
	sessions, err := generateFrames(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("frame generation failed: %w", err)
	}

	// Step 3: Submit frames concurrently
	if err := submitFrames(ctx, config, sessions, stats); err != nil {
		return fmt.Errorf("frame submission failed: %w", err)
	}

	// Step 4: Wait for processing
	logger.Get().Info(ctx, "waiting for frames to be processed")
	time.Sleep(ProcessingDelay)

	// Step 5: Verify blink counts against the script
	if err := verifyResults(ctx, config, sessions, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 6: Save frames to file
	if err := saveFramesToFile(ctx, config, sessions); err != nil {
		logger.Get().Warn(ctx, "failed to save frames to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "test completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the endpoint serves Prometheus metrics)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveFramesToFile saves the generated frames to a JSON file.
func saveFramesToFile(ctx context.Context, config *Config, sessions map[string][]Frame) error {
	if len(sessions) == 0 {
		return fmt.Errorf("no frames to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_frames_" + timestamp + ".json"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	if _, err := file.WriteString("[\n"); err != nil {
		return fmt.Errorf("failed to write opening bracket: %w", err)
	}

	first := true
	for _, frames := range sessions {
		for _, frame := range frames {
			jsonData, err := marshalJSON(frame)
			if err != nil {
				return fmt.Errorf("failed to marshal frame %s: %w", frame.FrameID, err)
			}

			if !first {
				if _, err := file.WriteString(",\n"); err != nil {
					return fmt.Errorf("failed to write separator: %w", err)
				}
			}
			first = false

			if _, err := file.Write(jsonData); err != nil {
				return fmt.Errorf("failed to write frame %s: %w", frame.FrameID, err)
			}
		}
	}

	if _, err := file.WriteString("\n]\n"); err != nil {
		return fmt.Errorf("failed to write closing bracket: %w", err)
	}

	logger.Get().Info(ctx, "frames saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var successRate, framesPerSecond float64

	if stats.FramesSubmitted > 0 {
		successRate = float64(stats.FramesSuccessful) / float64(stats.FramesSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		framesPerSecond = float64(stats.FramesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("framesGenerated", stats.FramesGenerated),
		logger.Int("framesSubmitted", stats.FramesSubmitted),
		logger.Int("framesSuccessful", stats.FramesSuccessful),
		logger.Int("framesDuplicate", stats.FramesDuplicate),
		logger.Int("framesFailed", stats.FramesFailed),
		logger.Int("sessionsChecked", stats.SessionsChecked),
		logger.Int("sessionsCorrect", stats.SessionsCorrect),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("framesPerSecond", framesPerSecond))
}
