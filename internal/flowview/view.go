// Package flowview holds the flow list shown to operators: the rows, the
// in-flight state of each row's actions and the shared status banner.
//
// The View is the source of truth; HTML and terminal output are projections
// of a Snapshot. Row state only changes after the backend confirms an action.
package flowview

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/carmatch/flowadmin/internal/flows"
)

// ClearDelay is how long a banner raised by an action stays visible.
const ClearDelay = 1600 * time.Millisecond

var (
	ErrUnknownFlow = errors.New("unknown flow")
	ErrInFlight    = errors.New("action already in flight")
	ErrNoWebhook   = errors.New("flow has no webhook")
)

// Backend is the flows API as seen by the view.
type Backend interface {
	ListFlows(ctx context.Context) ([]flows.Flow, error)
	ToggleFlow(ctx context.Context, id flows.ID) (flows.Flow, error)
	RunNow(ctx context.Context, id flows.ID) (flows.RunResult, error)
}

// Row is one flow plus the in-flight state of its two action controls.
type Row struct {
	Flow       flows.Flow
	ToggleBusy bool
	RunBusy    bool
}

type Snapshot struct {
	Rows     []Row
	Loaded   bool
	Loading  bool
	LoadErr  error
	Status   Status
	Location *time.Location
}

// Busy reports whether a load or any row action is in flight.
func (s Snapshot) Busy() bool {
	if s.Loading {
		return true
	}
	for _, r := range s.Rows {
		if r.ToggleBusy || r.RunBusy {
			return true
		}
	}
	return false
}

type Option func(*View)

func WithClearDelay(d time.Duration) Option {
	return func(v *View) { v.clearDelay = d }
}

// WithAfterFunc replaces time.AfterFunc for scheduling banner clears.
func WithAfterFunc(f func(time.Duration, func())) Option {
	return func(v *View) { v.afterFunc = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(v *View) { v.log = l }
}

func WithLocation(loc *time.Location) Option {
	return func(v *View) { v.loc = loc }
}

type View struct {
	backend Backend
	log     *slog.Logger
	loc     *time.Location

	clearDelay time.Duration
	afterFunc  func(time.Duration, func())

	mu        sync.Mutex
	rows      []Row
	loaded    bool
	loading   bool
	loadErr   error
	status    Status
	listeners []func()
}

func New(backend Backend, opts ...Option) *View {
	v := &View{
		backend:    backend,
		log:        slog.Default(),
		loc:        time.Local,
		clearDelay: ClearDelay,
		afterFunc:  func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// OnChange registers fn to be called after every state change.
func (v *View) OnChange(fn func()) {
	if fn == nil {
		return
	}
	v.mu.Lock()
	v.listeners = append(v.listeners, fn)
	v.mu.Unlock()
}

func (v *View) notify() {
	v.mu.Lock()
	ls := append([]func(){}, v.listeners...)
	v.mu.Unlock()
	for _, fn := range ls {
		fn()
	}
}

func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	rows := make([]Row, len(v.rows))
	copy(rows, v.rows)
	return Snapshot{
		Rows:     rows,
		Loaded:   v.loaded,
		Loading:  v.loading,
		LoadErr:  v.loadErr,
		Status:   v.status,
		Location: v.loc,
	}
}

// Row returns the current state of one row.
func (v *View) Row(id flows.ID) (Row, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	i := v.indexLocked(id)
	if i < 0 {
		return Row{}, false
	}
	return v.rows[i], true
}

func (v *View) Status() Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.status
}

func (v *View) indexLocked(id flows.ID) int {
	for i := range v.rows {
		if v.rows[i].Flow.ID == id {
			return i
		}
	}
	return -1
}

// Load replaces the rows with a fresh copy of the flow collection. Rows whose
// actions are still in flight keep their busy flags. A failed load empties
// the list and leaves a danger banner that is never auto-cleared.
func (v *View) Load(ctx context.Context) error {
	v.mu.Lock()
	v.loading = true
	v.setStatusLocked(StatusInfo, MsgLoading, true)
	v.mu.Unlock()
	v.notify()

	list, err := v.backend.ListFlows(ctx)

	v.mu.Lock()
	v.loading = false
	v.loaded = true
	if err != nil {
		v.rows = nil
		v.loadErr = err
		v.setStatusLocked(StatusDanger, MsgLoadFailed, true)
		v.mu.Unlock()
		v.log.Error("load flows failed", "err", err)
		v.notify()
		return err
	}
	busy := make(map[flows.ID]Row, len(v.rows))
	for _, r := range v.rows {
		if r.ToggleBusy || r.RunBusy {
			busy[r.Flow.ID] = r
		}
	}
	rows := make([]Row, 0, len(list))
	for _, f := range list {
		prev := busy[f.ID]
		rows = append(rows, Row{Flow: f, ToggleBusy: prev.ToggleBusy, RunBusy: prev.RunBusy})
	}
	v.rows = rows
	v.loadErr = nil
	v.setStatusLocked(StatusNone, "", false)
	v.mu.Unlock()
	v.notify()
	return nil
}

// Toggle flips the enabled state of one flow. The row is only updated from
// the server's answer; on failure it keeps its previous state.
func (v *View) Toggle(ctx context.Context, id flows.ID) error {
	v.mu.Lock()
	i := v.indexLocked(id)
	if i < 0 {
		v.mu.Unlock()
		return ErrUnknownFlow
	}
	if v.rows[i].ToggleBusy {
		v.mu.Unlock()
		return ErrInFlight
	}
	v.rows[i].ToggleBusy = true
	v.mu.Unlock()
	v.notify()

	var gen uint64
	defer func() {
		v.mu.Lock()
		if j := v.indexLocked(id); j >= 0 {
			v.rows[j].ToggleBusy = false
		}
		v.mu.Unlock()
		v.scheduleClear(gen)
		v.notify()
	}()

	updated, err := v.backend.ToggleFlow(ctx, id)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		v.log.Warn("toggle flow failed", "flow", id.String(), "err", err)
		gen = v.setStatusLocked(StatusDanger, MsgToggleFailed, false)
		return err
	}
	if j := v.indexLocked(id); j >= 0 {
		v.rows[j].Flow.Enabled = updated.Enabled
	}
	gen = v.setStatusLocked(StatusSuccess, MsgToggled, false)
	return nil
}

// RunNow triggers a flow's webhook. It never changes row data; the outcome
// is only reported through the banner.
func (v *View) RunNow(ctx context.Context, id flows.ID) error {
	v.mu.Lock()
	i := v.indexLocked(id)
	if i < 0 {
		v.mu.Unlock()
		return ErrUnknownFlow
	}
	if !v.rows[i].Flow.HasWebhook {
		v.mu.Unlock()
		return ErrNoWebhook
	}
	if v.rows[i].RunBusy {
		v.mu.Unlock()
		return ErrInFlight
	}
	v.rows[i].RunBusy = true
	v.setStatusLocked(StatusInfo, MsgRunning, false)
	v.mu.Unlock()
	v.notify()

	var gen uint64
	defer func() {
		v.mu.Lock()
		if j := v.indexLocked(id); j >= 0 {
			v.rows[j].RunBusy = false
		}
		v.mu.Unlock()
		v.scheduleClear(gen)
		v.notify()
	}()

	res, err := v.backend.RunNow(ctx, id)
	if err == nil && !runSucceeded(res) {
		err = &RunError{Result: res}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		v.log.Warn("run flow failed", "flow", id.String(), "err", err)
		gen = v.setStatusLocked(StatusDanger, MsgRunFailed, false)
		return err
	}
	gen = v.setStatusLocked(StatusSuccess, MsgRunTriggered, false)
	return nil
}

func runSucceeded(res flows.RunResult) bool {
	if !res.OK {
		return false
	}
	return res.Status == 0 || (res.Status >= 200 && res.Status < 300)
}

// RunError reports a run-now answer that did not confirm the trigger.
type RunError struct {
	Result flows.RunResult
}

func (e *RunError) Error() string {
	if e.Result.Error != "" {
		return "run failed: " + e.Result.Error
	}
	return "run failed"
}
