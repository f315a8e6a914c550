package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"github.com/TheMichaelB/schoolctl/internal/config"
	"github.com/TheMichaelB/schoolctl/internal/events"
	"github.com/TheMichaelB/schoolctl/internal/models"
	"github.com/TheMichaelB/schoolctl/internal/payload"
)

// HTTPClient talks to the persistence API over HTTP.
type HTTPClient struct {
	client    *http.Client
	baseURL   string
	userAgent string
	token     string
	logger    *events.Logger

	// Retry configuration; applies to reads only. Submits are never
	// retried here: on failure the staged state is preserved and the
	// caller decides when to resubmit.
	maxRetries int
	retryDelay time.Duration
}

// NewHTTPClient creates an HTTP client.
func NewHTTPClient(cfg *config.APIConfig, logger *events.Logger) *HTTPClient {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			NextProtos: []string{"h2", "http/1.1"},
		},
	}

	if err := http2.ConfigureTransport(transport); err != nil {
		logger.WithError(err).Warn("Failed to configure HTTP/2")
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		retryDelay: time.Second,
		logger:     logger.WithField("component", "http_client"),
	}
}

// SetToken sets the bearer token.
func (c *HTTPClient) SetToken(token string) {
	c.token = token
}

// GetToken returns the current bearer token.
func (c *HTTPClient) GetToken() string {
	return c.token
}

// FetchRecord retrieves a record's attachment snapshot.
func (c *HTTPClient) FetchRecord(ctx context.Context, recordID string) (*models.RecordSnapshot, error) {
	url := fmt.Sprintf("%s/api/v1/records/%s/attachments", c.baseURL, recordID)

	c.logger.WithField("record_id", recordID).Debug("Fetching record snapshot")

	var body []byte
	err := c.retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		c.setHeaders(req, "")

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("execute request: %w", err)
		}
		defer resp.Body.Close()

		if isRetryable(resp.StatusCode) {
			b, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("server error %d: %s", resp.StatusCode, b)
		}

		body, err = c.readResponse(resp)
		return err
	})
	if err != nil {
		return nil, err
	}

	return decodeSnapshot(body)
}

// SubmitAttachments posts the multipart diff payload for a record.
// The request is sent at most once.
func (c *HTTPClient) SubmitAttachments(ctx context.Context, recordID string, p *payload.Payload) (*models.RecordSnapshot, error) {
	url := fmt.Sprintf("%s/api/v1/records/%s/attachments", c.baseURL, recordID)

	c.logger.WithFields(map[string]interface{}{
		"record_id": recordID,
		"fields":    p.Fields,
		"size":      len(p.Body),
	}).Debug("Submitting attachment diff")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(p.Body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req, p.ContentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := c.readResponse(resp)
	if err != nil {
		return nil, err
	}

	snap, err := decodeSnapshot(body)
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"record_id": recordID,
		"status":    resp.StatusCode,
	}).Info("Attachment diff accepted")

	return snap, nil
}

// Close releases resources.
func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// readResponse drains the body and converts non-200 statuses to
// errors, preferring the API's structured error shape.
func (c *HTTPClient) readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr models.APIError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
			apiErr.StatusCode = resp.StatusCode
			return nil, &apiErr
		}
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, body)
	}
	return body, nil
}

func (c *HTTPClient) setHeaders(req *http.Request, contentType string) {
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// retry executes a read with exponential backoff.
func (c *HTTPClient) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	delay := c.retryDelay

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.WithFields(map[string]interface{}{
				"attempt": attempt,
				"delay":   delay,
			}).Debug("Retrying request")

			select {
			case <-time.After(delay):
				delay *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func isRetryable(status int) bool {
	return status == http.StatusTooManyRequests ||
		(status >= 500 && status < 600)
}

func decodeSnapshot(body []byte) (*models.RecordSnapshot, error) {
	var snap models.RecordSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	if snap.Slots == nil {
		snap.Slots = make(map[string]*models.AttachmentRef)
	}
	return &snap, nil
}
