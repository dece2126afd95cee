// Package mock is a file-backed workflow source for demos and tests. It
// answers like an n8n instance without one being reachable.
package mock

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carmatch/flowadmin/internal/flows"
	"github.com/carmatch/flowadmin/internal/n8n"
	"github.com/carmatch/flowadmin/internal/state"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusRunning = "running"
)

// Store reads and writes the state file on every call so that edits made
// by another process are picked up.
type Store struct {
	Path string

	mu sync.Mutex
}

func (s *Store) Ensure() (*state.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked()
}

func (s *Store) ensureLocked() (*state.State, error) {
	st, err := state.Load(s.Path)
	if err == nil {
		return st, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	seed := state.SeedDefault()
	if err := state.SaveAtomic(s.Path, seed); err != nil {
		return nil, err
	}
	return seed, nil
}

func (s *Store) update(fn func(st *state.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.ensureLocked()
	if err != nil {
		return err
	}
	if err := fn(st); err != nil {
		return err
	}
	return state.SaveAtomic(s.Path, st)
}

// FlowIDs returns the workflow ids in display order.
func (s *Store) FlowIDs() ([]string, error) {
	st, err := s.Ensure()
	if err != nil {
		return nil, err
	}
	ids := append([]string(nil), st.Order...)
	seen := map[string]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	var extra []string
	for id := range st.Workflows {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	return append(ids, extra...), nil
}

func (s *Store) Webhooks() (map[string]string, error) {
	st, err := s.Ensure()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(st.Webhooks))
	for k, v := range st.Webhooks {
		out[k] = v
	}
	return out, nil
}

func notFound(id string) error {
	return &n8n.StatusError{Method: http.MethodGet, URL: "mock://workflows/" + id, Status: http.StatusNotFound}
}

func (s *Store) GetWorkflow(ctx context.Context, id string) (n8n.Workflow, error) {
	if err := ctx.Err(); err != nil {
		return n8n.Workflow{}, err
	}
	st, err := s.Ensure()
	if err != nil {
		return n8n.Workflow{}, err
	}
	wf := st.Workflows[id]
	if wf == nil {
		return n8n.Workflow{}, notFound(id)
	}
	return *wf, nil
}

func (s *Store) SetActive(ctx context.Context, id string, active bool) (n8n.Workflow, error) {
	if err := ctx.Err(); err != nil {
		return n8n.Workflow{}, err
	}
	var out n8n.Workflow
	err := s.update(func(st *state.State) error {
		wf := st.Workflows[id]
		if wf == nil {
			return notFound(id)
		}
		wf.Active = active
		wf.UpdatedAt = time.Now().UTC()
		out = *wf
		return nil
	})
	return out, err
}

func (s *Store) LastExecution(ctx context.Context, id string) (*n8n.Execution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st, err := s.Ensure()
	if err != nil {
		return nil, err
	}
	var last *n8n.Execution
	for i := range st.Executions {
		ex := st.Executions[i]
		if ex.WorkflowID.String() != id {
			continue
		}
		if last == nil || ex.StartedAt >= last.StartedAt {
			last = &ex
		}
	}
	return last, nil
}

// TriggerWebhook records a successful execution for the workflow owning the
// webhook URL. Like n8n production webhooks, those of inactive workflows are
// not registered and answer 404.
func (s *Store) TriggerWebhook(ctx context.Context, webhookURL string, payload any) (n8n.WebhookResponse, error) {
	if err := ctx.Err(); err != nil {
		return n8n.WebhookResponse{}, err
	}
	webhookURL = strings.TrimSpace(webhookURL)
	if webhookURL == "" {
		return n8n.WebhookResponse{}, errors.New("missing webhook url")
	}

	var resp n8n.WebhookResponse
	err := s.update(func(st *state.State) error {
		var wf *n8n.Workflow
		for id, u := range st.Webhooks {
			if u == webhookURL {
				wf = st.Workflows[id]
				break
			}
		}
		if wf == nil || !wf.Active {
			resp = n8n.WebhookResponse{
				Status: http.StatusNotFound,
				Body:   map[string]any{"code": 404, "message": "The requested webhook is not registered."},
			}
			return nil
		}
		now := time.Now().UTC()
		ex := n8n.Execution{
			ID:         flows.ID(uuid.NewString()),
			WorkflowID: flows.ID(wf.ID),
			Status:     StatusSuccess,
			Finished:   true,
			Mode:       "webhook",
			StartedAt:  now.Format(time.RFC3339Nano),
			StoppedAt:  now.Format(time.RFC3339Nano),
			FinishedAt: now.Format(time.RFC3339Nano),
		}
		st.Executions = append(st.Executions, ex)
		resp = n8n.WebhookResponse{
			OK:     true,
			Status: http.StatusOK,
			Body:   map[string]any{"message": "Workflow was started", "executionId": ex.ID.String()},
		}
		return nil
	})
	return resp, err
}
