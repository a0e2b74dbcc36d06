// Package client is a small, hand-written Go SDK for the engine's HTTP
// introspection API (internal/api), mirroring the surface of the
// original Python source's workflows/client.py: StartWorkflow, QueueTask,
// GetExecution, WaitForExecution, SendSignal. There is no OpenAPI
// generation step in this repository, so unlike the teacher's
// oapi-codegen-generated client, every method here is written directly
// against net/http.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// JSON is a free-form JSON-serialisable value, matching
// internal/execution.JSON.
type JSON = map[string]interface{}

// Execution mirrors the wire shape of internal/execution.Execution. It is
// redeclared here (rather than imported) so pkg/client carries no
// dependency on the engine's internal packages.
type Execution struct {
	ID               string                 `json:"id"`
	Kind             string                 `json:"kind"`
	FunctionName     string                 `json:"function_name"`
	Queue            string                 `json:"queue"`
	Status           string                 `json:"status"`
	Inputs           JSON                   `json:"inputs"`
	Output           JSON                   `json:"output,omitempty"`
	Error            *ExecutionError        `json:"error,omitempty"`
	Attempt          int                    `json:"attempt"`
	MaxRetries       int                    `json:"max_retries"`
	ParentWorkflowID *string                `json:"parent_workflow_id,omitempty"`
	ClaimedBy        *string                `json:"claimed_by,omitempty"`
	Priority         int                    `json:"priority"`
	TimeoutSeconds   *int                   `json:"timeout_seconds,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	ClaimedAt        *time.Time             `json:"claimed_at,omitempty"`
	CompletedAt      *time.Time             `json:"completed_at,omitempty"`
}

// ExecutionError mirrors internal/execution.Error.
type ExecutionError struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
	Trace   string `json:"trace,omitempty"`
}

// IsTerminal reports whether the execution has reached completed or failed.
func (e *Execution) IsTerminal() bool {
	return e.Status == "completed" || e.Status == "failed"
}

// Client is a thin HTTP wrapper over the engine's introspection API.
type Client struct {
	baseURL string
	opts    *options
	ws      *WebSocketClient
}

// New constructs a Client pointed at baseURL (e.g. "http://localhost:8080").
func New(baseURL string, opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/"), opts: o}
}

// ConnectWebSocket opens the real-time execution-event stream at /ws.
func (c *Client) ConnectWebSocket(ctx context.Context) error {
	if c.ws != nil && c.ws.IsConnected() {
		return nil
	}
	c.ws = newWebSocketClient(c.baseURL, c.opts.apiKey)
	return c.ws.Connect(ctx)
}

// Events returns a channel receiving WebSocket events. Call
// ConnectWebSocket first; an unconnected Client returns a closed channel.
func (c *Client) Events() <-chan *Event {
	if c.ws == nil {
		ch := make(chan *Event)
		close(ch)
		return ch
	}
	return c.ws.Events()
}

// SubscribeEvents sends a subscribe request for eventTypes. The server
// only logs such requests and keeps sending every event type.
func (c *Client) SubscribeEvents(eventTypes ...EventType) error {
	if c.ws == nil {
		return fmt.Errorf("client: websocket not connected")
	}
	return c.ws.Subscribe(eventTypes...)
}

// CloseWebSocket closes the event stream connection.
func (c *Client) CloseWebSocket() error {
	if c.ws == nil {
		return nil
	}
	return c.ws.Close()
}

// QueueTaskRequest is the body of a QueueTask call.
type QueueTaskRequest struct {
	FunctionName   string `json:"function_name"`
	Queue          string `json:"queue,omitempty"`
	Inputs         JSON   `json:"inputs,omitempty"`
	Priority       int    `json:"priority,omitempty"`
	MaxRetries     int    `json:"max_retries,omitempty"`
	TimeoutSeconds *int   `json:"timeout_seconds,omitempty"`
}

// QueueTask enqueues a new top-level task execution (engine specification
// §6, "queue_task(name, inputs, queue?) -> id").
func (c *Client) QueueTask(ctx context.Context, req QueueTaskRequest) (*Execution, error) {
	var e Execution
	if err := c.do(ctx, http.MethodPost, "/v1/tasks", req, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// StartWorkflowRequest is the body of a StartWorkflow call.
type StartWorkflowRequest struct {
	FunctionName   string `json:"function_name"`
	Queue          string `json:"queue,omitempty"`
	Inputs         JSON   `json:"inputs,omitempty"`
	TimeoutSeconds *int   `json:"timeout_seconds,omitempty"`
}

// StartWorkflow enqueues a new top-level workflow execution (engine
// specification §6, "start_workflow(name, inputs) -> id").
func (c *Client) StartWorkflow(ctx context.Context, req StartWorkflowRequest) (*Execution, error) {
	var e Execution
	if err := c.do(ctx, http.MethodPost, "/v1/workflows", req, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// GetExecution fetches a single execution's current state (engine
// specification §6, "get_execution(id)").
func (c *Client) GetExecution(ctx context.Context, id string) (*Execution, error) {
	var e Execution
	if err := c.do(ctx, http.MethodGet, "/v1/executions/"+url.PathEscape(id), nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// ErrWaitTimeout is returned by WaitForExecution when the execution does
// not reach a terminal state within the requested timeout.
var ErrWaitTimeout = fmt.Errorf("client: wait for execution timed out")

// WaitForExecution polls GetExecution every pollInterval until the
// execution reaches completed or failed, or timeout elapses (engine
// specification §6, "wait_for_execution(id, timeout): a polling loop over
// get_execution"). pollInterval defaults to 250ms if zero.
func (c *Client) WaitForExecution(ctx context.Context, id string, timeout, pollInterval time.Duration) (*Execution, error) {
	if pollInterval <= 0 {
		pollInterval = 250 * time.Millisecond
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		e, err := c.GetExecution(ctx, id)
		if err != nil {
			return nil, err
		}
		if e.IsTerminal() {
			return e, nil
		}
		if timeout > 0 && time.Now().After(deadline) {
			return e, ErrWaitTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// ListFilter narrows a ListExecutions call.
type ListFilter struct {
	Queue  string
	Status string
	Limit  int
	Offset int
}

// listResponse is the wire shape of GET /v1/executions.
type listResponse struct {
	Executions []*Execution `json:"executions"`
	Count      int          `json:"count"`
}

// ListExecutions lists executions matching f.
func (c *Client) ListExecutions(ctx context.Context, f ListFilter) ([]*Execution, error) {
	q := url.Values{}
	if f.Queue != "" {
		q.Set("queue", f.Queue)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}

	path := "/v1/executions"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var resp listResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Executions, nil
}

// CancelExecution cancels a pending or suspended execution.
func (c *Client) CancelExecution(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/executions/"+url.PathEscape(id), nil, nil)
}

// SendSignal delivers a named, payload-carrying signal to a workflow
// (engine specification §6, "send_signal(workflow_id, name, payload)").
func (c *Client) SendSignal(ctx context.Context, workflowID, name string, payload JSON) (string, error) {
	var resp struct {
		SignalID string `json:"signal_id"`
	}
	path := fmt.Sprintf("/v1/workflows/%s/signals/%s", url.PathEscape(workflowID), url.PathEscape(name))
	body := struct {
		Payload JSON `json:"payload,omitempty"`
	}{Payload: payload}
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return "", err
	}
	return resp.SignalID, nil
}

// APIError is returned for any non-2xx HTTP response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: status %d: %s", e.StatusCode, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.opts.apiKey != "" {
		req.Header.Set("X-API-Key", c.opts.apiKey)
	}
	for k, v := range c.opts.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.opts.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var errBody struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return &APIError{StatusCode: resp.StatusCode, Message: errBody.Message}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
