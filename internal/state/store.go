// Package state persists the demo workflow state used by the mock source.
package state

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/carmatch/flowadmin/internal/n8n"
)

const currentVersion = 1

type State struct {
	Version int `json:"version"`
	// Order is the display order of the seeded workflows.
	Order      []string                 `json:"order"`
	Workflows  map[string]*n8n.Workflow `json:"workflows"`
	Executions []n8n.Execution          `json:"executions"`
	// Webhooks maps a workflow id to the URL that starts it.
	Webhooks map[string]string `json:"webhooks"`
}

func DefaultPath() (string, error) {
	// Prefer OS config dir; falls back to HOME.
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		h, herr := os.UserHomeDir()
		if herr != nil {
			return "", errors.New("cannot determine config dir")
		}
		dir = filepath.Join(h, ".config")
	}
	return filepath.Join(dir, "flowadmin", "mock", "state.json"), nil
}

func EnsureParentDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

func Load(path string) (*State, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	if s.Workflows == nil {
		s.Workflows = map[string]*n8n.Workflow{}
	}
	if s.Webhooks == nil {
		s.Webhooks = map[string]string{}
	}
	return &s, nil
}

func SaveAtomic(path string, s *State) error {
	if err := EnsureParentDir(path); err != nil {
		return err
	}

	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func scheduleNode(params map[string]any) n8n.Node {
	return n8n.Node{Name: "Schedule Trigger", Type: "n8n-nodes-base.scheduleTrigger", Parameters: params}
}

func interval(iv map[string]any) map[string]any {
	return map[string]any{"rule": map[string]any{"interval": []any{iv}}}
}

// SeedDefault returns a small set of workflows covering the listing cases:
// scheduled and unscheduled, active and inactive, with and without webhook.
func SeedDefault() *State {
	now := time.Now().UTC()
	wf := func(id, name string, active bool, nodes ...n8n.Node) *n8n.Workflow {
		return &n8n.Workflow{ID: id, Name: name, Active: active, CreatedAt: now, UpdatedAt: now, Nodes: nodes}
	}
	webhook := func(id string) n8n.Node {
		return n8n.Node{Name: "Webhook", Type: "n8n-nodes-base.webhook", WebhookID: id}
	}

	st := &State{
		Version: currentVersion,
		Order:   []string{"wf-chileautos", "wf-yapo", "wf-mercadolibre", "wf-cleanup"},
		Workflows: map[string]*n8n.Workflow{
			"wf-chileautos": wf("wf-chileautos", "Scraper Chileautos", true,
				scheduleNode(interval(map[string]any{"field": "days", "triggerAtHour": 8.0})),
				webhook("hook-chileautos")),
			"wf-yapo": wf("wf-yapo", "Scraper Yapo", false,
				scheduleNode(interval(map[string]any{"field": "cronExpression", "expression": "30 6 * * 1-5"})),
				webhook("hook-yapo")),
			"wf-mercadolibre": wf("wf-mercadolibre", "Scraper MercadoLibre", true,
				scheduleNode(interval(map[string]any{"field": "hours", "hoursInterval": 6.0, "triggerAtMinute": 15.0}))),
			"wf-cleanup": wf("wf-cleanup", "Limpieza de avisos", false),
		},
		Executions: []n8n.Execution{
			{
				ID:         "1001",
				WorkflowID: "wf-chileautos",
				Status:     "success",
				Finished:   true,
				Mode:       "trigger",
				StartedAt:  now.Add(-2 * time.Hour).Format(time.RFC3339),
				StoppedAt:  now.Add(-2*time.Hour + 3*time.Minute).Format(time.RFC3339),
			},
			{
				ID:         "1002",
				WorkflowID: "wf-mercadolibre",
				Status:     "error",
				Finished:   false,
				Mode:       "trigger",
				StartedAt:  now.Add(-30 * time.Minute).Format(time.RFC3339),
				StoppedAt:  now.Add(-29 * time.Minute).Format(time.RFC3339),
				Error:      "Request failed with status code 503",
			},
		},
		Webhooks: map[string]string{
			"wf-chileautos": "mock://webhook/hook-chileautos",
			"wf-yapo":       "mock://webhook/hook-yapo",
		},
	}
	return st
}
