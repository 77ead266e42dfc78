// Package restapi provides the HTTP+JSON adapter for the remote task API.
package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/evanschultz/tasklist/internal/domain"
	"github.com/google/uuid"
)

// DefaultTimeout bounds one API call.
const DefaultTimeout = 5 * time.Second

// maxResponseBodyBytes limits decoded response payload size.
const maxResponseBodyBytes int64 = 4 << 20

// requestIDHeader carries one correlation id per request.
const requestIDHeader = "X-Request-ID"

// ErrInvalidBaseURL is returned when the configured API base cannot be used.
var ErrInvalidBaseURL = errors.New("invalid api base url")

// ErrDecodeResponse wraps malformed response payloads.
var ErrDecodeResponse = errors.New("decode response")

// StatusError reports a non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Logger receives request diagnostics.
type Logger interface {
	Debug(msg any, keyvals ...any)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout overrides the per-call timeout. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRequestIDs overrides request id generation.
func WithRequestIDs(gen func() string) Option {
	return func(c *Client) {
		if gen != nil {
			c.requestID = gen
		}
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client talks to `{base}/tasks`.
type Client struct {
	base      *url.URL
	http      *http.Client
	timeout   time.Duration
	requestID func() string
	logger    Logger
}

// NewClient constructs a client for the given API base, e.g. http://localhost:3000/api.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		base:      base,
		http:      http.DefaultClient,
		timeout:   DefaultTimeout,
		requestID: uuid.NewString,
		logger:    charmLog.New(io.Discard),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// BaseURL returns the normalized API base.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// taskPayload is the wire form of one task. Legacy servers emit `_id`.
type taskPayload struct {
	ID        string    `json:"id"`
	LegacyID  string    `json:"_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// toDomain maps one wire task into the domain record.
func (p taskPayload) toDomain() (domain.Task, error) {
	id := p.ID
	if strings.TrimSpace(id) == "" {
		id = p.LegacyID
	}
	task, err := domain.NewTask(id, p.Title, p.CreatedAt)
	if err != nil {
		return domain.Task{}, fmt.Errorf("%w: %w", ErrDecodeResponse, err)
	}
	return task, nil
}

// createRequest is the POST body.
type createRequest struct {
	Title string `json:"title"`
}

// updateRequest is the PUT body; omitted fields are left untouched.
type updateRequest struct {
	Title *string `json:"title,omitempty"`
}

// ListTasks fetches the full collection in server order.
func (c *Client) ListTasks(ctx context.Context) ([]domain.Task, error) {
	var payload []taskPayload
	if err := c.do(ctx, http.MethodGet, "tasks", nil, &payload); err != nil {
		return nil, err
	}
	tasks := make([]domain.Task, 0, len(payload))
	for _, item := range payload {
		task, err := item.toDomain()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// CreateTask submits one title and returns the created record.
func (c *Client) CreateTask(ctx context.Context, title string) (domain.Task, error) {
	var payload taskPayload
	if err := c.do(ctx, http.MethodPost, "tasks", createRequest{Title: title}, &payload); err != nil {
		return domain.Task{}, err
	}
	return decodeOptionalTask(payload)
}

// UpdateTask submits a partial update for one task.
func (c *Client) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	var payload taskPayload
	path := "tasks/" + url.PathEscape(strings.TrimSpace(id))
	if err := c.do(ctx, http.MethodPut, path, updateRequest{Title: patch.Title}, &payload); err != nil {
		return domain.Task{}, err
	}
	return decodeOptionalTask(payload)
}

// DeleteTask removes one task. Any response body is ignored.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	path := "tasks/" + url.PathEscape(strings.TrimSpace(id))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// decodeOptionalTask maps a response task, tolerating servers that reply without a body.
func decodeOptionalTask(payload taskPayload) (domain.Task, error) {
	if payload.ID == "" && payload.LegacyID == "" {
		return domain.Task{Title: payload.Title, CreatedAt: payload.CreatedAt.UTC()}, nil
	}
	return payload.toDomain()
}

// do performs one JSON round trip.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.base.JoinPath(path)
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := c.requestID()
	req.Header.Set(requestIDHeader, requestID)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("api request failed", "method", method, "path", endpoint.Path, "request_id", requestID, "err", err)
		return fmt.Errorf("%s %s: %w", method, endpoint.Path, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("api request complete", "method", method, "path", endpoint.Path, "status", resp.StatusCode, "request_id", requestID, "elapsed", time.Since(started))

	limited := io.LimitReader(resp.Body, maxResponseBodyBytes)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(limited)
		return &StatusError{
			Method:     method,
			Path:       endpoint.Path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw),
		}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, limited)
		return nil
	}
	raw, err := io.ReadAll(limited)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, endpoint.Path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint.Path, errors.Join(ErrDecodeResponse, err))
	}
	return nil
}

// errorMessage extracts a human message from common error envelopes.
func errorMessage(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}
	var flat struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &flat); err == nil {
		if flat.Error != "" {
			return flat.Error
		}
		if flat.Message != "" {
			return flat.Message
		}
	}
	text := string(raw)
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

// parseBaseURL validates and normalizes the API base.
func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidBaseURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidBaseURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidBaseURL)
	}
	u.Path = "/" + strings.Trim(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
