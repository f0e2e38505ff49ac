// Package render is the HTTP client for the remote image-generation
// service. The service exposes two resources: a job-creation endpoint that
// answers 201 with a job envelope, and a per-job status endpoint that
// answers 200 with the same shape.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dreamboard/internal/domain"
)

type Options struct {
	BaseURL    string
	APIToken   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.APIToken),
	}
}

// BaseURL returns the configured service root. The download bridge uses it
// to resolve site-relative artifact references.
func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	return c.baseURL
}

type createRequest struct {
	Message string `json:"message"`
}

// jobEnvelope mirrors the wire shape of both endpoints.
type jobEnvelope struct {
	ID     string   `json:"id"`
	Status string   `json:"status"`
	Output []string `json:"output"`
	Detail string   `json:"detail"`
}

func (e *jobEnvelope) toJob() *domain.Job {
	return &domain.Job{
		ID:     e.ID,
		Status: domain.JobStatus(e.Status),
		Output: e.Output,
		Detail: e.Detail,
	}
}

// CreateJob submits a templated prompt and returns the accepted job.
// 429 maps to domain.ErrQuotaExceeded, other non-201 responses to a
// domain.ServiceError carrying the service detail, and network failures to
// a domain.TransportError.
func (c *Client) CreateJob(ctx context.Context, message string) (*domain.Job, error) {
	body, err := json.Marshal(createRequest{Message: message})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predictions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Err: err}
	}
	defer resp.Body.Close()

	envelope, decodeErr := decodeEnvelope(resp.Body)
	switch {
	case resp.StatusCode == http.StatusCreated:
		if decodeErr != nil {
			return nil, fmt.Errorf("render: decode create response: %w", decodeErr)
		}
		return envelope.toJob(), nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, domain.ErrQuotaExceeded
	default:
		return nil, &domain.ServiceError{StatusCode: resp.StatusCode, Detail: envelope.Detail}
	}
}

// GetJob fetches the current status of an accepted job. Any non-200
// response is a domain.ServiceError; the poller treats it as a defensive
// abort rather than retrying.
func (c *Client) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/predictions/"+id, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Err: err}
	}
	defer resp.Body.Close()

	envelope, decodeErr := decodeEnvelope(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.ServiceError{StatusCode: resp.StatusCode, Detail: envelope.Detail}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("render: decode status response: %w", decodeErr)
	}
	return envelope.toJob(), nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func decodeEnvelope(r io.Reader) (jobEnvelope, error) {
	var envelope jobEnvelope
	err := json.NewDecoder(r).Decode(&envelope)
	return envelope, err
}
