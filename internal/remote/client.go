package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/taskmate/taskmate/internal/engagement"
	"github.com/taskmate/taskmate/internal/model"
)

const (
	defaultMaxAttempts = 4
	defaultBackoffBase = 100 * time.Millisecond
	defaultBackoffCap  = 2 * time.Second
)

// Client talks the JSON wire protocol to a remote Server.
//
// Transport failures and 5xx responses without a coded error body are
// retried with bounded exponential backoff before being surfaced as
// NETWORK errors; idempotency keys make the retries safe. Responses
// carrying a coded domain error are never retried here, the rejection
// belongs to the caller.
type Client struct {
	baseURL string
	httpc   *http.Client

	maxAttempts int
	backoffBase time.Duration
	backoffCap  time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) ClientOption {
	return func(c *Client) { c.httpc = httpc }
}

// WithRetry overrides the transport retry budget.
func WithRetry(maxAttempts int, base, cap time.Duration) ClientOption {
	return func(c *Client) {
		c.maxAttempts = maxAttempts
		c.backoffBase = base
		c.backoffCap = cap
	}
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		httpc:       &http.Client{Timeout: 10 * time.Second},
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
		backoffCap:  defaultBackoffCap,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetSubject implements Store.
func (c *Client) GetSubject(ctx context.Context, id string) (*model.Subject, error) {
	var subj model.Subject
	if err := c.do(ctx, http.MethodGet, "/subjects/"+url.PathEscape(id), nil, "", nil, &subj); err != nil {
		return nil, err
	}
	return &subj, nil
}

// ListSubjects implements Store.
func (c *Client) ListSubjects(ctx context.Context) ([]*model.Subject, error) {
	var subjects []*model.Subject
	if err := c.do(ctx, http.MethodGet, "/subjects", nil, "", nil, &subjects); err != nil {
		return nil, err
	}
	return subjects, nil
}

// GetEngagements implements Store.
func (c *Client) GetEngagements(ctx context.Context, subjectID string) ([]*model.Engagement, error) {
	query := url.Values{}
	if subjectID != "" {
		query.Set("subject_id", subjectID)
	}
	var engagements []*model.Engagement
	if err := c.do(ctx, http.MethodGet, "/engagements", query, "", nil, &engagements); err != nil {
		return nil, err
	}
	return engagements, nil
}

// GetNotifications implements Store.
func (c *Client) GetNotifications(ctx context.Context, recipient string) ([]*model.Notification, error) {
	query := url.Values{"recipient": {recipient}}
	var notifications []*model.Notification
	if err := c.do(ctx, http.MethodGet, "/notifications", query, "", nil, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// CreateEngagement implements Store.
func (c *Client) CreateEngagement(ctx context.Context, key string, req engagement.CreateRequest) (*model.Engagement, error) {
	body := createEngagementRequest{
		SubjectID: req.SubjectID,
		Actor:     req.Actor,
		Slot:      req.Slot,
		Note:      req.Note,
	}
	var eng model.Engagement
	if err := c.do(ctx, http.MethodPost, "/engagements", nil, key, body, &eng); err != nil {
		return nil, err
	}
	return &eng, nil
}

// ApproveEngagement implements Store.
func (c *Client) ApproveEngagement(ctx context.Context, key, subjectID, engagementID string) error {
	return c.postTransition(ctx, key, subjectID, engagementID, "approve")
}

// RejectEngagement implements Store.
func (c *Client) RejectEngagement(ctx context.Context, key, subjectID, engagementID string) error {
	return c.postTransition(ctx, key, subjectID, engagementID, "reject")
}

// CompleteEngagement implements Store.
func (c *Client) CompleteEngagement(ctx context.Context, key, subjectID, engagementID string) error {
	return c.postTransition(ctx, key, subjectID, engagementID, "complete")
}

// RevertEngagement implements Store.
func (c *Client) RevertEngagement(ctx context.Context, key, subjectID, engagementID string) error {
	return c.postTransition(ctx, key, subjectID, engagementID, "revert")
}

// MarkNotificationRead implements Store.
func (c *Client) MarkNotificationRead(ctx context.Context, key, recipient, notificationID string) error {
	path := "/notifications/" + url.PathEscape(notificationID) + "/read"
	return c.do(ctx, http.MethodPost, path, nil, key, notificationRequest{Recipient: recipient}, nil)
}

// ClearNotification implements Store.
func (c *Client) ClearNotification(ctx context.Context, key, recipient, notificationID string) error {
	path := "/notifications/" + url.PathEscape(notificationID) + "/clear"
	return c.do(ctx, http.MethodPost, path, nil, key, notificationRequest{Recipient: recipient}, nil)
}

func (c *Client) postTransition(ctx context.Context, key, subjectID, engagementID, op string) error {
	path := "/engagements/" + url.PathEscape(engagementID) + "/" + op
	return c.do(ctx, http.MethodPost, path, nil, key, transitionRequest{SubjectID: subjectID}, nil)
}

// do performs one logical request with transport-level retries. out, when
// non-nil, receives the decoded success body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, key string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, c.backoff(attempt)); err != nil {
				return err
			}
			slog.Debug("retrying request", "method", method, "path", path, "attempt", attempt)
		}

		req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if key != "" {
			req.Header.Set(idempotencyHeader, key)
		}

		resp, err := c.httpc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = model.NewNetworkError(err)
			continue
		}

		err = decodeResponse(resp, out)
		resp.Body.Close()
		// A 5xx without a coded domain body is as transient as a dropped
		// connection; the idempotency key makes resubmission safe.
		if err != nil && resp.StatusCode >= 500 && model.IsNetwork(err) {
			lastErr = err
			continue
		}
		return err
	}
	return lastErr
}

// decodeResponse turns a completed HTTP exchange into a result or a
// coded error. Error bodies that fail to parse degrade to NETWORK.
func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode >= 400 {
		var we wireError
		if err := json.NewDecoder(resp.Body).Decode(&we); err != nil || we.Code == "" {
			return model.NewNetworkError(fmt.Errorf("server returned status %d", resp.StatusCode))
		}
		return fromWireError(we)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return model.NewNetworkError(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// backoff computes the delay before the given retry attempt.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.backoffBase << (attempt - 1)
	if d > c.backoffCap {
		d = c.backoffCap
	}
	return d
}

func sleepBackoff(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
