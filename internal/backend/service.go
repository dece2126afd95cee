// Package backend serves the flows API from a workflow source: it assembles
// the listing of configured flows, flips their active state and triggers
// their webhooks.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/carmatch/flowadmin/internal/flows"
	"github.com/carmatch/flowadmin/internal/n8n"
)

const (
	defaultFanOut = 4

	ExecutionSuccess = "success"
	ExecutionError   = "error"
	ExecutionUnknown = "unknown"

	// NoWebhookMessage is reported by RunNow for flows without a webhook.
	NoWebhookMessage = "No webhook configured for this workflow"
)

var ErrUnknownFlow = errors.New("flow is not configured")

// Source is where workflows live. n8n.Client talks to a real instance,
// mock.Store keeps them in a local file.
type Source interface {
	GetWorkflow(ctx context.Context, id string) (n8n.Workflow, error)
	SetActive(ctx context.Context, id string, active bool) (n8n.Workflow, error)
	LastExecution(ctx context.Context, id string) (*n8n.Execution, error)
	TriggerWebhook(ctx context.Context, webhookURL string, payload any) (n8n.WebhookResponse, error)
}

type Service struct {
	Source Source
	// FlowIDs lists the workflows shown, in display order.
	FlowIDs []string
	// Webhooks maps a workflow id to the URL that starts it.
	Webhooks      map[string]string
	EditorBaseURL string
	// FanOut bounds concurrent lookups in ListFlows.
	FanOut int
	Logger *slog.Logger
}

func (s *Service) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Service) configured(id string) bool {
	for _, fid := range s.FlowIDs {
		if fid == id {
			return true
		}
	}
	return false
}

func (s *Service) webhook(id string) string {
	return strings.TrimSpace(s.Webhooks[id])
}

// EditorURL is the n8n editor link of a workflow, empty without a base URL.
func (s *Service) EditorURL(id string) string {
	base := strings.TrimRight(strings.TrimSpace(s.EditorBaseURL), "/")
	if base == "" {
		return ""
	}
	return base + "/workflow/" + id
}

// describe builds the listing entry of one workflow. A failing execution
// lookup only loses last_run.
func (s *Service) describe(ctx context.Context, wf n8n.Workflow) flows.Flow {
	f := flows.Flow{
		ID:         flows.ID(wf.ID),
		Name:       wf.Name,
		EditorURL:  s.EditorURL(wf.ID),
		Enabled:    wf.Active,
		HasWebhook: s.webhook(wf.ID) != "",
	}
	if sched, ok := n8n.DescribeSchedule(wf.Nodes); ok {
		f.ScheduleTime = sched.Time
		f.Frequency = sched.Frequency
	}
	ex, err := s.Source.LastExecution(ctx, wf.ID)
	if err != nil {
		s.log().Warn("last execution lookup failed", "flow", wf.ID, "err", err)
		return f
	}
	if ex != nil {
		f.LastRun = firstNonEmpty(ex.StartedAt, ex.FinishedAt, ex.StoppedAt)
	}
	return f
}

// ListFlows looks up every configured workflow concurrently. Workflows that
// cannot be fetched are left out; the rest keep the configured order.
func (s *Service) ListFlows(ctx context.Context) ([]flows.Flow, error) {
	found := make([]*flows.Flow, len(s.FlowIDs))

	g, gctx := errgroup.WithContext(ctx)
	limit := s.FanOut
	if limit <= 0 {
		limit = defaultFanOut
	}
	g.SetLimit(limit)
	for i, id := range s.FlowIDs {
		i, id := i, id
		g.Go(func() error {
			wf, err := s.Source.GetWorkflow(gctx, id)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.log().Warn("workflow lookup failed", "flow", id, "err", err)
				return nil
			}
			if wf.ID == "" {
				wf.ID = id
			}
			f := s.describe(gctx, wf)
			found[i] = &f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]flows.Flow, 0, len(found))
	for _, f := range found {
		if f != nil {
			out = append(out, *f)
		}
	}
	return out, nil
}

// ToggleFlow flips the active state of a configured workflow.
func (s *Service) ToggleFlow(ctx context.Context, id flows.ID) (flows.Flow, error) {
	key := id.String()
	if !s.configured(key) {
		return flows.Flow{}, fmt.Errorf("%w: %s", ErrUnknownFlow, key)
	}
	wf, err := s.Source.GetWorkflow(ctx, key)
	if err != nil {
		return flows.Flow{}, fmt.Errorf("get workflow %s: %w", key, err)
	}
	updated, err := s.Source.SetActive(ctx, key, !wf.Active)
	if err != nil {
		return flows.Flow{}, fmt.Errorf("set workflow %s active=%t: %w", key, !wf.Active, err)
	}
	if updated.ID == "" {
		updated.ID = key
	}
	if updated.Name == "" && len(updated.Nodes) == 0 {
		wf.Active = updated.Active
		updated = wf
	}
	s.log().Info("workflow toggled", "flow", key, "active", updated.Active)
	return s.describe(ctx, updated), nil
}

// RunNow triggers the webhook of a workflow. A missing webhook and a non-2xx
// answer are reported in the result, not as errors.
func (s *Service) RunNow(ctx context.Context, id flows.ID) (flows.RunResult, error) {
	key := id.String()
	url := s.webhook(key)
	if url == "" {
		return flows.RunResult{OK: false, Status: 400, Error: NoWebhookMessage}, nil
	}
	resp, err := s.Source.TriggerWebhook(ctx, url, map[string]any{"source": "admin", "workflowId": key})
	if err != nil {
		return flows.RunResult{}, fmt.Errorf("trigger webhook %s: %w", key, err)
	}
	res := flows.RunResult{OK: resp.OK, Status: resp.Status, Body: resp.Body}
	if !resp.OK {
		res.Error = fmt.Sprintf("webhook answered %d", resp.Status)
	}
	s.log().Info("workflow triggered", "flow", key, "status", resp.Status)
	return res, nil
}

// LastExecutionStatus reports the latest execution of a workflow. OK is set
// only for a successful run. Executions without a status field are
// classified from their finished flag.
func (s *Service) LastExecutionStatus(ctx context.Context, id flows.ID) (flows.ExecutionStatus, error) {
	key := id.String()
	ex, err := s.Source.LastExecution(ctx, key)
	if err != nil {
		return flows.ExecutionStatus{}, fmt.Errorf("last execution %s: %w", key, err)
	}
	if ex == nil {
		return flows.ExecutionStatus{Status: ExecutionUnknown, WorkflowID: key}, nil
	}
	status := strings.ToLower(strings.TrimSpace(ex.Status))
	if status == "" {
		status = ExecutionError
		if ex.Finished {
			status = ExecutionSuccess
		}
	}
	wid := ex.WorkflowID.String()
	if wid == "" {
		wid = key
	}
	return flows.ExecutionStatus{
		OK:         status == ExecutionSuccess,
		Status:     status,
		ID:         ex.ID.String(),
		StartedAt:  ex.StartedAt,
		StoppedAt:  ex.StoppedAt,
		WorkflowID: wid,
		Error:      ex.ErrorText(),
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
