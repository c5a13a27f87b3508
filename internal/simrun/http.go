package simrun

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/korobprog/supermock-matcher/pkg/logger"
)

// HTTPClient wraps http.Client with a fixed timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
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

// drainAndClose reads and closes the response body.
func drainAndClose(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitEnrollments posts tool lists and preferences concurrently.
func submitEnrollments(ctx context.Context, config *Config, enrollments []Enrollment, stats *Stats) error {
	logger.Get().Info(ctx, "submitting enrollments",
		logger.Int("count", len(enrollments)),
		logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)

	var (
		submitted int64
		accepted  int64
		failed    int64
	)

	enrollChan := make(chan Enrollment, config.Workers*2)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range enrollChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				atomic.AddInt64(&submitted, 1)
				if submitSingleEnrollment(ctx, client, config.BaseURL, e) {
					atomic.AddInt64(&accepted, 1)
				} else {
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}

	go func() {
		defer close(enrollChan)
		for _, e := range enrollments {
			select {
			case <-ctx.Done():
				return
			case enrollChan <- e:
			}
		}
	}()

	wg.Wait()

	stats.EnrollmentsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.EnrollmentsAccepted = int(atomic.LoadInt64(&accepted))
	stats.EnrollmentsFailed = int(atomic.LoadInt64(&failed))

	logger.Get().Info(ctx, "enrollment submission completed",
		logger.Int("accepted", stats.EnrollmentsAccepted),
		logger.Int("failed", stats.EnrollmentsFailed))
	return nil
}

// submitSingleEnrollment posts the tool list first so matching can rank on
// it, then the preference itself. Reports success only if both land.
func submitSingleEnrollment(ctx context.Context, client *HTTPClient, baseURL string, e Enrollment) bool {
	if len(e.Tools) > 0 {
		resp, err := client.Post(ctx, baseURL+"/tools", map[string]interface{}{
			"user_id":    e.UserID,
			"profession": e.Profession,
			"tools":      e.Tools,
		})
		if err != nil {
			return false
		}
		if _, err := drainAndClose(resp); err != nil || resp.StatusCode != http.StatusOK {
			return false
		}
	}

	resp, err := client.Post(ctx, baseURL+"/preferences", e)
	if err != nil {
		return false
	}
	if _, err := drainAndClose(resp); err != nil {
		return false
	}
	return resp.StatusCode == http.StatusCreated
}
