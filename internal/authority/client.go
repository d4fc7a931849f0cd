package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fakeyudi/diffreview/internal/review"
)

// Client talks to a review server over HTTP. It makes exactly one request per
// call and never retries.
type Client struct {
	baseURL  string
	http     *http.Client
	logger   *slog.Logger
	maxReply int64
}

// DefaultMaxReplyBytes bounds a server reply. Session snapshots carry whole
// file contents, so the limit is generous.
const DefaultMaxReplyBytes = 64 << 20

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the client's logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithMaxReplyBytes overrides DefaultMaxReplyBytes.
func WithMaxReplyBytes(n int64) ClientOption {
	return func(c *Client) { c.maxReply = n }
}

// NewClient returns a client for the server at baseURL, e.g.
// "http://127.0.0.1:8080".
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxReply: DefaultMaxReplyBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var _ review.Authority = (*Client)(nil)

// LoadSession fetches the session snapshot.
func (c *Client) LoadSession(ctx context.Context, sessionID string) (*review.Snapshot, error) {
	var reply sessionReply
	if err := c.do(ctx, http.MethodGet, c.sessionPath(sessionID, ""), nil, &reply); err != nil {
		return nil, err
	}
	if reply.Error != "" {
		return nil, &review.RejectedError{Reason: reply.Error}
	}
	if reply.Files == nil {
		return nil, &review.ValidationError{Field: "files", Message: "missing from response"}
	}
	if reply.Status == "" {
		reply.Status = review.StatusActive
	}

	snap := &review.Snapshot{
		Session: review.Session{
			ID:             reply.ID,
			RepositoryName: reply.RepositoryName,
			Status:         reply.Status,
			Files:          reply.Files,
		},
	}
	if reply.AppliedChanges != nil {
		snap.AppliedChanges = *reply.AppliedChanges
		snap.HasAppliedList = true
	}
	return snap, nil
}

// ApplyChange asks the server to apply one change.
func (c *Client) ApplyChange(ctx context.Context, sessionID, changeID string) error {
	return c.change(ctx, sessionID, "apply", changeID)
}

// UnapplyChange asks the server to revert one change.
func (c *Client) UnapplyChange(ctx context.Context, sessionID, changeID string) error {
	return c.change(ctx, sessionID, "unapply", changeID)
}

func (c *Client) change(ctx context.Context, sessionID, action, changeID string) error {
	var reply actionReply
	body := changeRequest{ChangeID: changeID}
	if err := c.do(ctx, http.MethodPost, c.sessionPath(sessionID, action), body, &reply); err != nil {
		return err
	}
	return reply.outcome()
}

// CompleteSession finishes the session and returns the server's applied list.
func (c *Client) CompleteSession(ctx context.Context, sessionID string) ([]string, error) {
	var reply actionReply
	if err := c.do(ctx, http.MethodPost, c.sessionPath(sessionID, "complete"), nil, &reply); err != nil {
		return nil, err
	}
	if err := reply.outcome(); err != nil {
		return nil, err
	}
	return reply.AppliedChanges, nil
}

// CancelSession abandons the session.
func (c *Client) CancelSession(ctx context.Context, sessionID string) error {
	var reply actionReply
	if err := c.do(ctx, http.MethodPost, c.sessionPath(sessionID, "cancel"), nil, &reply); err != nil {
		return err
	}
	return reply.outcome()
}

func (c *Client) sessionPath(sessionID, action string) string {
	p := c.baseURL + "/api/session/" + url.PathEscape(sessionID)
	if action != "" {
		p += "/" + action
	}
	return p
}

// do performs one JSON round trip. Non-2xx replies are decoded for an error
// field so the server's reason reaches the user.
func (c *Client) do(ctx context.Context, method, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxReply+1))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if int64(len(data)) > c.maxReply {
		return &review.ValidationError{Field: "body", Message: fmt.Sprintf("reply exceeds %d bytes", c.maxReply)}
	}
	c.logger.Debug("http round trip", "method", method, "url", target, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorReply
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return &review.RejectedError{Reason: e.Error}
		}
		return fmt.Errorf("server error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &review.ValidationError{Field: "body", Message: err.Error()}
	}
	return nil
}
