package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/carmatch/flowadmin/internal/flows"
)

const (
	DefaultFlowsPath  = "/api/n8n/flows/"
	DefaultCSRFCookie = "csrftoken"
	DefaultCSRFHeader = "X-CSRFToken"

	// RunSource tags run-now requests issued from the admin surfaces.
	RunSource = "admin"
)

var ErrMalformedResponse = errors.New("malformed response")

// APIError is a non-2xx answer from the flows API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("api error (status=%d)", e.Status)
	}
	return fmt.Sprintf("api error (status=%d): %s", e.Status, e.Message)
}

// Client talks to the flows API. A cookie jar is installed on first use so a
// CSRF cookie issued by the server is replayed as a header on mutating calls.
type Client struct {
	BaseURL    string
	FlowsPath  string
	CSRFCookie string
	CSRFHeader string
	// CSRFToken is used when the jar holds no CSRF cookie.
	CSRFToken string
	HTTP      *http.Client

	once sync.Once
}

func New(baseURL string) *Client {
	return &Client{BaseURL: baseURL}
}

func (c *Client) httpClient() *http.Client {
	c.once.Do(func() {
		if c.HTTP == nil {
			c.HTTP = &http.Client{Timeout: 30 * time.Second}
		}
		if c.HTTP.Jar == nil {
			if jar, err := cookiejar.New(nil); err == nil {
				c.HTTP.Jar = jar
			}
		}
	})
	return c.HTTP
}

func (c *Client) baseEndpointFor(path string) (string, error) {
	if strings.TrimSpace(c.BaseURL) == "" {
		return "", fmt.Errorf("missing api base url")
	}
	u, err := url.Parse(strings.TrimRight(c.BaseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid api url: %w", err)
	}
	p := strings.TrimSpace(path)
	p = strings.TrimPrefix(p, "/")
	u.Path = strings.TrimRight(u.Path, "/") + "/" + p
	return u.String(), nil
}

func (c *Client) flowsPath() string {
	p := strings.TrimSpace(c.FlowsPath)
	if p == "" {
		p = DefaultFlowsPath
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

func (c *Client) flowPath(id flows.ID, action string) (string, error) {
	raw := strings.TrimSpace(id.String())
	if raw == "" {
		return "", errors.New("missing flow id")
	}
	return c.flowsPath() + url.PathEscape(raw) + "/" + action + "/", nil
}

// CSRF returns the token to send on mutating requests, or "" when none is known.
func (c *Client) CSRF() string {
	name := c.CSRFCookie
	if strings.TrimSpace(name) == "" {
		name = DefaultCSRFCookie
	}
	hc := c.httpClient()
	if hc.Jar != nil {
		if u, err := url.Parse(strings.TrimRight(c.BaseURL, "/") + "/"); err == nil {
			for _, ck := range hc.Jar.Cookies(u) {
				if ck.Name == name && strings.TrimSpace(ck.Value) != "" {
					return ck.Value
				}
			}
		}
	}
	return strings.TrimSpace(c.CSRFToken)
}

// do performs one request and returns the raw body and status.
func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, int, error) {
	endpoint, err := c.baseEndpointFor(path)
	if err != nil {
		return nil, 0, err
	}
	hc := c.httpClient()

	var r io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, 0, err
		}
		r = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, r)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet && method != http.MethodHead {
		if tok := c.CSRF(); tok != "" {
			header := c.CSRFHeader
			if strings.TrimSpace(header) == "" {
				header = DefaultCSRFHeader
			}
			req.Header.Set(header, tok)
		}
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return b, resp.StatusCode, nil
}

func apiErrorFrom(status int, b []byte) error {
	var payload struct {
		Error any `json:"error"`
	}
	msg := ""
	if err := json.Unmarshal(b, &payload); err == nil && payload.Error != nil {
		switch v := payload.Error.(type) {
		case string:
			msg = v
		case map[string]any:
			if s, ok := v["message"].(string); ok {
				msg = s
			}
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(b))
		if len(msg) > 200 {
			msg = msg[:200]
		}
	}
	return &APIError{Status: status, Message: msg}
}

func isSuccess(status int) bool { return status >= 200 && status < 300 }

// ListFlows fetches the flow collection.
func (c *Client) ListFlows(ctx context.Context) ([]flows.Flow, error) {
	b, status, err := c.do(ctx, http.MethodGet, c.flowsPath(), nil)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, apiErrorFrom(status, b)
	}
	var out []flows.Flow
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return out, nil
}

// ToggleFlow flips a flow's enabled state and returns the flow as reported by the server.
func (c *Client) ToggleFlow(ctx context.Context, id flows.ID) (flows.Flow, error) {
	path, err := c.flowPath(id, "toggle")
	if err != nil {
		return flows.Flow{}, err
	}
	b, status, err := c.do(ctx, http.MethodPost, path, map[string]any{})
	if err != nil {
		return flows.Flow{}, err
	}
	if !isSuccess(status) {
		return flows.Flow{}, apiErrorFrom(status, b)
	}
	var payload struct {
		Flow *flows.Flow `json:"flow"`
	}
	if err := json.Unmarshal(b, &payload); err != nil {
		return flows.Flow{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if payload.Flow == nil {
		return flows.Flow{}, fmt.Errorf("%w: missing flow", ErrMalformedResponse)
	}
	out := *payload.Flow
	if out.ID == "" {
		out.ID = id
	}
	return out, nil
}

// RunNow triggers the flow's webhook. A JSON answer is decoded even on a
// non-2xx status; the caller decides success from RunResult.OK and Status.
func (c *Client) RunNow(ctx context.Context, id flows.ID) (flows.RunResult, error) {
	path, err := c.flowPath(id, "run-now")
	if err != nil {
		return flows.RunResult{}, err
	}
	b, status, err := c.do(ctx, http.MethodPost, path, map[string]any{"source": RunSource})
	if err != nil {
		return flows.RunResult{}, err
	}
	var out flows.RunResult
	if err := json.Unmarshal(b, &out); err != nil {
		if !isSuccess(status) {
			return flows.RunResult{}, apiErrorFrom(status, b)
		}
		return flows.RunResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if !isSuccess(status) {
		out.OK = false
		if out.Status == 0 {
			out.Status = status
		}
	}
	return out, nil
}

// LastExecution reports the most recent execution of a flow.
func (c *Client) LastExecution(ctx context.Context, id flows.ID) (flows.ExecutionStatus, error) {
	path, err := c.flowPath(id, "last-execution")
	if err != nil {
		return flows.ExecutionStatus{}, err
	}
	b, status, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return flows.ExecutionStatus{}, err
	}
	if !isSuccess(status) {
		return flows.ExecutionStatus{}, apiErrorFrom(status, b)
	}
	var out flows.ExecutionStatus
	if err := json.Unmarshal(b, &out); err != nil {
		return flows.ExecutionStatus{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return out, nil
}
