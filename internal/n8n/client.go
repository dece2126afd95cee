// Package n8n is a small client of the n8n public REST API: workflow lookup,
// activation, execution history and webhook triggering.
package n8n

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

	"github.com/carmatch/flowadmin/internal/flows"
)

const (
	apiKeyHeader    = "X-N8N-API-KEY"
	projectIDHeader = "n8n-project-id"

	defaultTimeout = 20 * time.Second
	webhookTimeout = 90 * time.Second
)

var (
	ErrMissingAPIURL = errors.New("missing n8n api url (N8N_API_URL)")
	ErrMissingAPIKey = errors.New("missing n8n api key (N8N_API_KEY)")
)

// StatusError is a non-2xx answer from n8n.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("n8n %s %s: status %d", e.Method, e.URL, e.Status)
}

type Workflow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Nodes     []Node    `json:"nodes"`
}

type Node struct {
	ID         string         `json:"id,omitempty"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Disabled   bool           `json:"disabled,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	WebhookID  string         `json:"webhookId,omitempty"`
}

// Execution ids are numbers in the public API and strings in some
// versions and the mock; flows.ID accepts both.
type Execution struct {
	ID         flows.ID `json:"id"`
	WorkflowID flows.ID `json:"workflowId"`
	Status     string   `json:"status"`
	Finished   bool     `json:"finished"`
	Mode       string   `json:"mode,omitempty"`
	StartedAt  string   `json:"startedAt,omitempty"`
	StoppedAt  string   `json:"stoppedAt,omitempty"`
	FinishedAt string   `json:"finishedAt,omitempty"`
	// Error is a string or an object depending on the n8n version.
	Error any `json:"error,omitempty"`
}

// ErrorText flattens Error into a message.
func (e Execution) ErrorText() string {
	switch v := e.Error.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any:
		if m, ok := v["message"].(string); ok {
			return m
		}
	}
	b, err := json.Marshal(e.Error)
	if err != nil {
		return fmt.Sprint(e.Error)
	}
	return string(b)
}

// WebhookResponse is what a webhook answered. Body is decoded JSON when the
// response declares it, the raw text otherwise.
type WebhookResponse struct {
	OK     bool
	Status int
	Body   any
}

type Client struct {
	APIURL    string
	APIKey    string
	ProjectID string
	HTTP      *http.Client
	// Webhook is used for webhook calls, which may wait for a whole run.
	Webhook *http.Client
}

func (c Client) apiClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: defaultTimeout}
}

func (c Client) webhookClient() *http.Client {
	if c.Webhook != nil {
		return c.Webhook
	}
	return &http.Client{Timeout: webhookTimeout}
}

func (c Client) endpoint(path string, query url.Values) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if base == "" {
		return "", ErrMissingAPIURL
	}
	u, err := url.Parse(base + "/" + strings.TrimPrefix(path, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid n8n api url: %w", err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

func (c Client) doJSON(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	endpoint, err := c.endpoint(path, query)
	if err != nil {
		return err
	}
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, r)
	if err != nil {
		return err
	}
	req.Header.Set(apiKeyHeader, c.APIKey)
	req.Header.Set("Accept", "application/json")
	if strings.TrimSpace(c.ProjectID) != "" {
		req.Header.Set(projectIDHeader, c.ProjectID)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.apiClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Method: method, URL: endpoint, Status: resp.StatusCode, Body: string(b)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode n8n response: %w", err)
	}
	return nil
}

func (c Client) GetWorkflow(ctx context.Context, id string) (Workflow, error) {
	var wf Workflow
	err := c.doJSON(ctx, http.MethodGet, "/workflows/"+url.PathEscape(id), nil, nil, &wf)
	return wf, err
}

func (c Client) SetActive(ctx context.Context, id string, active bool) (Workflow, error) {
	var wf Workflow
	err := c.doJSON(ctx, http.MethodPatch, "/workflows/"+url.PathEscape(id), nil, map[string]any{"active": active}, &wf)
	return wf, err
}

// LastExecution returns the most recent execution of a workflow, or nil when
// it never ran. Older n8n versions list executions under "items".
func (c Client) LastExecution(ctx context.Context, id string) (*Execution, error) {
	var payload struct {
		Data  []Execution `json:"data"`
		Items []Execution `json:"items"`
	}
	q := url.Values{"workflowId": []string{id}, "limit": []string{"1"}}
	if err := c.doJSON(ctx, http.MethodGet, "/executions", q, nil, &payload); err != nil {
		return nil, err
	}
	items := payload.Data
	if len(items) == 0 {
		items = payload.Items
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// TriggerWebhook posts payload to a webhook URL. Non-2xx answers are not
// errors; they are reported through WebhookResponse.
func (c Client) TriggerWebhook(ctx context.Context, webhookURL string, payload any) (WebhookResponse, error) {
	webhookURL = strings.TrimSpace(webhookURL)
	if webhookURL == "" {
		return WebhookResponse{}, errors.New("missing webhook url")
	}
	if payload == nil {
		payload = map[string]any{}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return WebhookResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(b))
	if err != nil {
		return WebhookResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.webhookClient().Do(req)
	if err != nil {
		return WebhookResponse{}, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return WebhookResponse{}, err
	}

	out := WebhookResponse{
		OK:     resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status: resp.StatusCode,
		Body:   string(raw),
	}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var v any
		if err := json.Unmarshal(raw, &v); err == nil {
			out.Body = v
		}
	}
	return out, nil
}
