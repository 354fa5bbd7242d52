// Package registry holds the HTTP client for the downstream person registry.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"fhir-bridge/internal/person"
)

// ErrRejected is returned when the registry answered with anything other
// than 201 Created.
var ErrRejected = errors.New("person registry rejected the payload")

// ErrUnreachable is returned when no HTTP response was obtained at all.
var ErrUnreachable = errors.New("person registry unreachable")

// RejectionError wraps ErrRejected with the status the registry returned.
type RejectionError struct {
	StatusCode int
	Body       string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("person registry rejected the payload: status %d", e.StatusCode)
}

func (e *RejectionError) Unwrap() error { return ErrRejected }

// PersonClient sends person payloads to the registry over HTTP. Each Send
// is a single attempt with a bounded timeout; retries are the caller's
// business, and the caller chooses not to.
type PersonClient struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// PersonClientOption configures the PersonClient.
type PersonClientOption func(*PersonClient)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(client *http.Client) PersonClientOption {
	return func(c *PersonClient) {
		c.httpClient = client
	}
}

// NewPersonClient creates a client for the registry at baseURL.
func NewPersonClient(baseURL string, timeout time.Duration, opts ...PersonClientOption) *PersonClient {
	c := &PersonClient{
		baseURL: baseURL,
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send posts the payload to {baseURL}/fhir/Person. Only a 201 Created
// response counts as success.
func (c *PersonClient) Send(ctx context.Context, payload person.Payload) error {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling person payload: %w", err)
	}

	url := fmt.Sprintf("%s/fhir/Person", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("building registry request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusCreated {
		return nil
	}

	// Keep a short excerpt of the body for the run log.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &RejectionError{StatusCode: resp.StatusCode, Body: string(body)}
}
