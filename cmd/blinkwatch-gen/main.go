package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/blinkwatch/internal/testframes"
)

// Default configuration constants.
const (
	defaultNumSessions = 20
	defaultNumBlinks   = 5
	defaultFPS         = 10
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:8090", "Base URL of the service")
		numSessions = flag.Int("sessions", defaultNumSessions, "Number of monitoring sessions to simulate")
		numBlinks   = flag.Int("blinks", defaultNumBlinks, "Number of blinks scripted per session")
		fps         = flag.Int("fps", defaultFPS, "Simulated camera frame rate")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile  = flag.String("output", "", "Output file for generated frames (default: generated_frames_TIMESTAMP.json)")
		logFile     = flag.String("log", "", "Log file for test output (default: test_log_TIMESTAMP.log)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testframes.ShowHelp()
		return
	}

	// Setup logging
	if err := testframes.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	// Create test configuration
	config := &testframes.Config{
		BaseURL:     *baseURL,
		NumSessions: *numSessions,
		NumBlinks:   *numBlinks,
		FPS:         *fps,
		Workers:     *workers,
		Timeout:     *timeout,
		OutputFile:  *outputFile,
		LogFile:     *logFile,
		Verbose:     *verbose,
	}

	// Run the test
	if err := testframes.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		return
	}
}
