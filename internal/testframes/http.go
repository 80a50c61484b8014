package testframes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := marshalJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// marshalJSON marshals a struct to JSON
func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// unmarshalJSON unmarshals JSON to a struct
func unmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitFrames submits frames concurrently, one worker per session at a
// time. Frames within a session are sent in order because the blink latch
// is sequential; different sessions are independent and run in parallel.
func submitFrames(ctx context.Context, config *Config, sessions map[string][]Frame, stats *Stats) error {
	log.Printf("Submitting frames for %d sessions with %d workers...", len(sessions), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/frames"

	var (
		successful int64
		duplicate  int64
		failed     int64
		submitted  int64
	)

	sessionChan := make(chan []Frame, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for frames := range sessionChan {
				for _, frame := range frames {
					select {
					case <-ctx.Done():
						return
					default:
					}

					result := submitSingleFrame(ctx, client, url, frame)
					atomic.AddInt64(&submitted, 1)
					switch result {
					case "success":
						atomic.AddInt64(&successful, 1)
					case "duplicate":
						atomic.AddInt64(&duplicate, 1)
					case "failed":
						atomic.AddInt64(&failed, 1)
					}
				}
			}
		}()
	}

	go func() {
		defer close(sessionChan)
		for _, frames := range sessions {
			select {
			case <-ctx.Done():
				return
			case sessionChan <- frames:
			}
		}
	}()

	wg.Wait()

	stats.FramesSubmitted = int(atomic.LoadInt64(&submitted))
	stats.FramesSuccessful = int(atomic.LoadInt64(&successful))
	stats.FramesDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.FramesFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`Frame submission completed:
   Successful: %d
   Duplicate: %d
   Failed: %d
`, stats.FramesSuccessful, stats.FramesDuplicate, stats.FramesFailed)

	return nil
}

// submitSingleFrame submits a single frame and returns the result
func submitSingleFrame(ctx context.Context, client *HTTPClient, url string, frame Frame) string {
	resp, err := client.Post(ctx, url, frame)
	if err != nil {
		return "failed"
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return "failed"
	}

	switch resp.StatusCode {
	case StatusAccepted:
		var ack AckResponse
		if err := unmarshalJSON(body, &ack); err == nil && ack.Status == "accepted" {
			return "success"
		}
		return "success"
	case StatusOK:
		var ack AckResponse
		if err := unmarshalJSON(body, &ack); err == nil && ack.Duplicate {
			return "duplicate"
		}
		return "duplicate"
	default:
		return "failed"
	}
}

// fetchSnapshot retrieves the snapshot for a single session.
func fetchSnapshot(ctx context.Context, client *HTTPClient, baseURL, sessionID string) (*Snapshot, error) {
	resp, err := client.Get(ctx, baseURL+"/sessions/"+sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session %s: %w", sessionID, err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read session response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("session %s returned status %d", sessionID, resp.StatusCode)
	}

	var snap Snapshot
	if err := unmarshalJSON(body, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse session snapshot: %w", err)
	}
	return &snap, nil
}
