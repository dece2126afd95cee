package tui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/carmatch/flowadmin/internal/flows"
	"github.com/carmatch/flowadmin/internal/flowview"
)

type stubBackend struct {
	list    []flows.Flow
	listErr error
	toggled []flows.ID
	runs    []flows.ID
}

func (b *stubBackend) ListFlows(ctx context.Context) ([]flows.Flow, error) {
	return b.list, b.listErr
}

func (b *stubBackend) ToggleFlow(ctx context.Context, id flows.ID) (flows.Flow, error) {
	b.toggled = append(b.toggled, id)
	for _, f := range b.list {
		if f.ID == id {
			f.Enabled = !f.Enabled
			return f, nil
		}
	}
	return flows.Flow{}, errors.New("not found")
}

func (b *stubBackend) RunNow(ctx context.Context, id flows.ID) (flows.RunResult, error) {
	b.runs = append(b.runs, id)
	return flows.RunResult{OK: true, Status: 200}, nil
}

func newTestModel(t *testing.T, b *stubBackend, open func(string) error) Model {
	t.Helper()
	v := flowview.New(b,
		flowview.WithAfterFunc(func(time.Duration, func()) {}),
		flowview.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		flowview.WithLocation(time.UTC),
	)
	m := NewModel(context.Background(), Config{View: v, Open: open})
	m = run(t, m, m.loadCmd())
	return m
}

// run executes cmd synchronously and feeds its message back to the model.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	next, _ := m.Update(cmd())
	return next.(Model)
}

func press(t *testing.T, m Model, k string) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
	return next.(Model), cmd
}

func sampleFlows() []flows.Flow {
	return []flows.Flow{
		{ID: "1", Name: "Sync", HasWebhook: true, ScheduleTime: "08:00", Frequency: "daily", EditorURL: "https://n8n.example.com/workflow/1"},
		{ID: "2", Name: "Report", Enabled: true},
	}
}

func TestModel_LoadRendersRows(t *testing.T) {
	m := newTestModel(t, &stubBackend{list: sampleFlows()}, nil)

	out := m.View()
	for _, want := range []string{"Flujos n8n", "Sync", "Report", "08:00", flows.LabelInactive, flows.LabelActive} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in view:\n%s", want, out)
		}
	}
}

func TestModel_ToggleKey(t *testing.T) {
	b := &stubBackend{list: sampleFlows()}
	m := newTestModel(t, b, nil)

	m, cmd := press(t, m, "t")
	if cmd == nil {
		t.Fatalf("expected toggle command")
	}
	m = run(t, m, cmd)

	if len(b.toggled) != 1 || b.toggled[0] != "1" {
		t.Fatalf("expected toggle of flow 1, got %v", b.toggled)
	}
	if !m.snap.Rows[0].Flow.Enabled {
		t.Fatalf("expected row to follow the server state")
	}
	if !strings.Contains(m.View(), flowview.MsgToggled) {
		t.Fatalf("expected success banner:\n%s", m.View())
	}
}

func TestModel_RunKeyRespectsWebhook(t *testing.T) {
	b := &stubBackend{list: sampleFlows()}
	m := newTestModel(t, b, nil)

	m, cmd := press(t, m, "x")
	m = run(t, m, cmd)
	if len(b.runs) != 1 {
		t.Fatalf("expected one run, got %v", b.runs)
	}
	if !strings.Contains(m.View(), flowview.MsgRunTriggered) {
		t.Fatalf("expected run banner:\n%s", m.View())
	}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	m, cmd = press(t, m, "x")
	if cmd != nil {
		t.Fatalf("expected no command for a flow without webhook")
	}
	if len(b.runs) != 1 {
		t.Fatalf("expected no extra run, got %v", b.runs)
	}
	if m.note != flows.NoWebhookHint {
		t.Fatalf("expected webhook hint, got %q", m.note)
	}
}

func TestModel_OpenKey(t *testing.T) {
	var opened []string
	m := newTestModel(t, &stubBackend{list: sampleFlows()}, func(u string) error {
		opened = append(opened, u)
		return nil
	})

	m, _ = press(t, m, "o")
	if len(opened) != 1 || opened[0] != "https://n8n.example.com/workflow/1" {
		t.Fatalf("unexpected opened urls: %v", opened)
	}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	m, _ = press(t, m, "o")
	if len(opened) != 1 {
		t.Fatalf("expected flow without link not to open, got %v", opened)
	}
}

func TestModel_LoadFailureShowsPlaceholder(t *testing.T) {
	m := newTestModel(t, &stubBackend{listErr: errors.New("down")}, nil)
	out := m.View()
	if !strings.Contains(out, flowview.MsgLoadFailed) || !strings.Contains(out, flowview.MsgRowsFailed) {
		t.Fatalf("expected failure banner and placeholder:\n%s", out)
	}
}

func TestModel_EmptyList(t *testing.T) {
	m := newTestModel(t, &stubBackend{}, nil)
	if !strings.Contains(m.View(), flowview.MsgNoFlows) {
		t.Fatalf("expected empty placeholder:\n%s", m.View())
	}
}

func TestModel_QuitKey(t *testing.T) {
	m := newTestModel(t, &stubBackend{}, nil)
	_, cmd := press(t, m, "q")
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestFlowColumns_FitWidth(t *testing.T) {
	cols := flowColumns(60)
	if cols[0].Width < 12 {
		t.Fatalf("expected name column to keep a minimum width, got %d", cols[0].Width)
	}
	if len(cols) != 6 {
		t.Fatalf("expected 6 columns, got %d", len(cols))
	}
}
