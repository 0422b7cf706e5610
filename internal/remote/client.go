// Package remote is the HTTP client for the remote task and tag API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/benvon/smart-todo-sync/internal/apperrors"
	"github.com/benvon/smart-todo-sync/internal/middleware"
	"github.com/benvon/smart-todo-sync/internal/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// maxErrorBody caps how much of an error response is kept in RemoteError
const maxErrorBody = 512

// Options configures a Client
type Options struct {
	BaseURL   string
	AuthToken string
	Timeout   time.Duration
	// Transport sits beneath authentication, typically the offline cache
	Transport http.RoundTripper
	Logger    *zap.Logger
}

// Client calls the remote task API
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a client. Missing base URL or credential is reported by each
// call, not here, so a client can be built before configuration exists.
func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = middleware.DefaultRequestTimeout
	}

	base := middleware.Chain(opts.Transport, middleware.RequestID())
	var transport http.RoundTripper = base
	if opts.AuthToken != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{
				AccessToken: opts.AuthToken,
				TokenType:   "Bearer",
			}),
			Base: base,
		}
	}

	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		authToken: opts.AuthToken,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		logger: logger,
	}
}

// ListTasks fetches every task
func (c *Client) ListTasks(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	if err := c.do(ctx, "list_tasks", http.MethodGet, "/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

// CreateTask creates a task and returns its new id
func (c *Client) CreateTask(ctx context.Context, draft models.Draft) (int64, error) {
	var id int64
	if err := c.do(ctx, "create_task", http.MethodPost, "/tasks", draft, &id); err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, &apperrors.RemoteError{
			Op: "create_task", Method: http.MethodPost, Path: "/tasks",
			Err: fmt.Errorf("remote returned invalid id %d", id),
		}
	}
	return id, nil
}

// UpdateTask replaces a task's editable fields
func (c *Client) UpdateTask(ctx context.Context, update models.Update) error {
	return c.doBool(ctx, "update_task", http.MethodPut, "/tasks", update)
}

// DeleteTask removes a task
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.doBool(ctx, "delete_task", http.MethodDelete, "/tasks/"+idPath(id), nil)
}

// MarkDone sets a task's completion date on the remote side
func (c *Client) MarkDone(ctx context.Context, id int64) error {
	return c.doBool(ctx, "mark_done", http.MethodPost, "/tasks/"+idPath(id)+"/done", nil)
}

// MarkUndone clears a task's completion date on the remote side
func (c *Client) MarkUndone(ctx context.Context, id int64) error {
	return c.doBool(ctx, "mark_undone", http.MethodPost, "/tasks/"+idPath(id)+"/undone", nil)
}

// ListTags fetches every tag
func (c *Client) ListTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := c.do(ctx, "list_tags", http.MethodGet, "/tags", nil, &tags); err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	return tags, nil
}

// CreateTag creates a tag
func (c *Client) CreateTag(ctx context.Context, draft models.TagDraft) error {
	return c.doBool(ctx, "create_tag", http.MethodPost, "/tags", draft)
}

// UpdateTag replaces a tag's fields
func (c *Client) UpdateTag(ctx context.Context, update models.TagUpdate) error {
	return c.doBool(ctx, "update_tag", http.MethodPut, "/tags", update)
}

// DeleteTag removes a tag
func (c *Client) DeleteTag(ctx context.Context, id int64) error {
	return c.doBool(ctx, "delete_tag", http.MethodDelete, "/tags/"+idPath(id), nil)
}

// doBool runs a call whose response body is a JSON boolean; false is a failure
func (c *Client) doBool(ctx context.Context, op, method, path string, body any) error {
	var ok bool
	if err := c.do(ctx, op, method, path, body, &ok); err != nil {
		return err
	}
	if !ok {
		return &apperrors.RemoteError{Op: op, Method: method, Path: path, Err: errors.New("remote reported failure")}
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	if c.baseURL == "" {
		return fmt.Errorf("%w: base URL is not set", apperrors.ErrMissingConfiguration)
	}
	if c.authToken == "" {
		return fmt.Errorf("%w: auth token is not set", apperrors.ErrMissingConfiguration)
	}

	fail := func(status int, err error) error {
		return &apperrors.RemoteError{Op: op, Method: method, Path: path, StatusCode: status, Err: err}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: invalid base URL: %v", apperrors.ErrMissingConfiguration, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(0, unwrapURLError(err))
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("response_body_close_failed", zap.String("op", op), zap.Error(closeErr))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fail(resp.StatusCode, fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(snippet))))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fail(resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// unwrapURLError drops the *url.Error wrapper, whose message repeats the full URL
func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

func idPath(id int64) string {
	return strconv.FormatInt(id, 10)
}
