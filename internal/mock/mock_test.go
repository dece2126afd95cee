package mock

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/carmatch/flowadmin/internal/n8n"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return &Store{Path: filepath.Join(t.TempDir(), "state.json")}
}

func TestEnsure_SeedsOnce(t *testing.T) {
	s := newStore(t)
	if _, err := s.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if _, err := os.Stat(s.Path); err != nil {
		t.Fatalf("expected state file: %v", err)
	}
	ids, err := s.FlowIDs()
	if err != nil {
		t.Fatalf("FlowIDs: %v", err)
	}
	if len(ids) == 0 || ids[0] != "wf-chileautos" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestSetActive_Persists(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	wf, err := s.SetActive(ctx, "wf-yapo", true)
	if err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if !wf.Active {
		t.Fatalf("expected active workflow")
	}

	reopened := &Store{Path: s.Path}
	got, err := reopened.GetWorkflow(ctx, "wf-yapo")
	if err != nil {
		t.Fatalf("GetWorkflow: %v", err)
	}
	if !got.Active {
		t.Fatalf("expected persisted active state")
	}
}

func TestGetWorkflow_NotFound(t *testing.T) {
	_, err := newStore(t).GetWorkflow(context.Background(), "missing")
	var se *n8n.StatusError
	if !errors.As(err, &se) || se.Status != http.StatusNotFound {
		t.Fatalf("expected 404 status error, got %v", err)
	}
}

func TestTriggerWebhook_RecordsExecution(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	hooks, err := s.Webhooks()
	if err != nil {
		t.Fatalf("Webhooks: %v", err)
	}

	resp, err := s.TriggerWebhook(ctx, hooks["wf-chileautos"], map[string]any{"source": "admin"})
	if err != nil {
		t.Fatalf("TriggerWebhook: %v", err)
	}
	if !resp.OK || resp.Status != http.StatusOK {
		t.Fatalf("unexpected response: %+v", resp)
	}
	body, _ := resp.Body.(map[string]any)
	id, _ := body["executionId"].(string)
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected uuid execution id, got %q", id)
	}

	last, err := s.LastExecution(ctx, "wf-chileautos")
	if err != nil {
		t.Fatalf("LastExecution: %v", err)
	}
	if last == nil || last.ID.String() != id || last.Mode != "webhook" {
		t.Fatalf("expected recorded execution, got %+v", last)
	}
}

func TestTriggerWebhook_InactiveWorkflowIsNotRegistered(t *testing.T) {
	s := newStore(t)
	hooks, _ := s.Webhooks()
	resp, err := s.TriggerWebhook(context.Background(), hooks["wf-yapo"], nil)
	if err != nil {
		t.Fatalf("TriggerWebhook: %v", err)
	}
	if resp.OK || resp.Status != http.StatusNotFound {
		t.Fatalf("expected 404, got %+v", resp)
	}
}

func TestLastExecution_NeverRan(t *testing.T) {
	last, err := newStore(t).LastExecution(context.Background(), "wf-cleanup")
	if err != nil {
		t.Fatalf("LastExecution: %v", err)
	}
	if last != nil {
		t.Fatalf("expected no execution, got %+v", last)
	}
}
