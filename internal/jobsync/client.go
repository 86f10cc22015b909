package jobsync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tripweaver/tripweaver-backend/internal/domain"
	"github.com/tripweaver/tripweaver-backend/internal/platform/httpx"
	"github.com/tripweaver/tripweaver-backend/internal/platform/logger"
)

const (
	maxGetRetries  = 2
	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 5 * time.Second
)

// Client fetches the current snapshot of a plan generation job.
type Client interface {
	GetJob(ctx context.Context, jobID string) (*domain.JobSnapshot, error)
}

// StatusError carries the planner's HTTP status so retry classification via
// httpx can distinguish transient failures from permanent ones.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("planner returned status %d: %s", e.Status, e.Body)
}

func (e *StatusError) HTTPStatusCode() int { return e.Status }

type HTTPClient struct {
	log     *logger.Logger
	baseURL string
	http    *http.Client
}

// NewHTTPClient talks to the planner service's job status endpoint. baseURL
// is the planner root, e.g. http://planner:8090.
func NewHTTPClient(baseURL string, baseLog *logger.Logger) (*HTTPClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("planner base url required")
	}
	return &HTTPClient{
		log:     baseLog.With("client", "PlannerJobClient"),
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (c *HTTPClient) GetJob(ctx context.Context, jobID string) (*domain.JobSnapshot, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, fmt.Errorf("job id required")
	}

	endpoint := c.baseURL + "/v1/jobs/" + url.PathEscape(jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	var (
		resp *http.Response
		body []byte
	)
	for attempt := 0; ; attempt++ {
		resp, err = c.http.Do(req)
		if err != nil {
			return nil, err
		}
		body, err = io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusOK {
			break
		}
		if attempt < maxGetRetries && httpx.IsRetryableHTTPStatus(resp.StatusCode) {
			wait := httpx.RetryAfterDuration(resp, retryBaseDelay, retryMaxDelay)
			c.log.Debug("Planner returned retryable status, backing off", "job_id", jobID, "status", resp.StatusCode, "wait", wait)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(httpx.JitterSleep(wait)):
			}
			continue
		}
		return nil, &StatusError{Status: resp.StatusCode, Body: truncate(string(body), 256)}
	}

	var snap domain.JobSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("decode job snapshot: %w", err)
	}
	if snap.JobID == "" {
		snap.JobID = jobID
	}
	snap.Progress.Stage = domain.NormalizeStage(snap.Progress.Stage)
	return &snap, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
