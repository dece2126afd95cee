package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClient_baseEndpointFor_AppendsPath(t *testing.T) {
	c := Client{BaseURL: "http://example.test/base/"}
	got, err := c.baseEndpointFor("/api/n8n/flows/")
	if err != nil {
		t.Fatalf("baseEndpointFor: %v", err)
	}
	if got != "http://example.test/base/api/n8n/flows/" {
		t.Fatalf("unexpected endpoint: %q", got)
	}
}

func TestClient_baseEndpointFor_MissingBaseURL(t *testing.T) {
	c := Client{}
	if _, err := c.baseEndpointFor("/x"); err == nil {
		t.Fatalf("expected error for missing base url")
	}
}

func TestClient_ListFlows_SendsAcceptAndParses(t *testing.T) {
	var gotAccept, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`[{"id":1,"name":"Sync","enabled":false,"has_webhook":true,"schedule_time":"08:00","frequency":"daily","last_run":"2024-01-01T08:00:00Z"}]`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTP: srv.Client()}
	got, err := c.ListFlows(context.Background())
	if err != nil {
		t.Fatalf("ListFlows: %v", err)
	}
	if gotAccept != "application/json" {
		t.Fatalf("unexpected accept header: %q", gotAccept)
	}
	if gotPath != "/api/n8n/flows/" {
		t.Fatalf("unexpected path: %q", gotPath)
	}
	if len(got) != 1 || got[0].ID != "1" || got[0].Name != "Sync" || !got[0].HasWebhook {
		t.Fatalf("unexpected flows: %#v", got)
	}
}

func TestClient_ListFlows_NonSuccessIsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"n8n unreachable"}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTP: srv.Client()}
	_, err := c.ListFlows(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadGateway || apiErr.Message != "n8n unreachable" {
		t.Fatalf("unexpected api error: %#v", apiErr)
	}
}

func TestClient_ToggleFlow_ReplaysCSRFCookieAsHeader(t *testing.T) {
	var gotToken, gotCT string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "tok-123", Path: "/"})
			_, _ = w.Write([]byte(`[]`))
		case r.URL.Path == "/api/n8n/flows/42/toggle/":
			gotToken = r.Header.Get("X-CSRFToken")
			gotCT = r.Header.Get("Content-Type")
			gotBody, _ = io.ReadAll(r.Body)
			_ = json.NewEncoder(w).Encode(map[string]any{"flow": map[string]any{"id": 42, "enabled": true}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTP: srv.Client()}
	if _, err := c.ListFlows(context.Background()); err != nil {
		t.Fatalf("ListFlows: %v", err)
	}
	f, err := c.ToggleFlow(context.Background(), "42")
	if err != nil {
		t.Fatalf("ToggleFlow: %v", err)
	}
	if !f.Enabled || f.ID != "42" {
		t.Fatalf("unexpected flow: %#v", f)
	}
	if gotToken != "tok-123" {
		t.Fatalf("expected csrf header from cookie, got %q", gotToken)
	}
	if gotCT != "application/json" {
		t.Fatalf("unexpected content-type: %q", gotCT)
	}
	if strings.TrimSpace(string(gotBody)) != "{}" {
		t.Fatalf("expected empty json object body, got %q", string(gotBody))
	}
}

func TestClient_ToggleFlow_NoCSRFHeaderWithoutCookie(t *testing.T) {
	sawHeader := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawHeader = r.Header["X-Csrftoken"]
		_, _ = w.Write([]byte(`{"flow":{"enabled":false}}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTP: srv.Client()}
	if _, err := c.ToggleFlow(context.Background(), "1"); err != nil {
		t.Fatalf("ToggleFlow: %v", err)
	}
	if sawHeader {
		t.Fatalf("expected no csrf header when no cookie is present")
	}
}

func TestClient_ToggleFlow_MissingFlowIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTP: srv.Client()}
	_, err := c.ToggleFlow(context.Background(), "1")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestClient_RunNow_SendsSourceAndDecodesFailure(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/n8n/flows/wf-1/run-now/" {
			t.Errorf("unexpected path: %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"status":400,"error":"No webhook configured for this workflow"}`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTP: srv.Client()}
	res, err := c.RunNow(context.Background(), "wf-1")
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if got["source"] != "admin" {
		t.Fatalf("unexpected payload: %#v", got)
	}
	if res.OK || res.Status != 400 || res.Error == "" {
		t.Fatalf("unexpected result: %#v", res)
	}
}

func TestClient_RunNow_NonJSONFailureIsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<html>boom</html>"))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTP: srv.Client()}
	_, err := c.RunNow(context.Background(), "1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 500 {
		t.Fatalf("expected 500 APIError, got %v", err)
	}
}

func TestClient_flowPath_EscapesID(t *testing.T) {
	c := Client{}
	got, err := c.flowPath("a/b", "toggle")
	if err != nil {
		t.Fatalf("flowPath: %v", err)
	}
	if got != "/api/n8n/flows/a%2Fb/toggle/" {
		t.Fatalf("unexpected path: %q", got)
	}
	if _, err := c.flowPath(" ", "toggle"); err == nil {
		t.Fatalf("expected error for empty id")
	}
}
