// Package tui is the terminal projection of a flow list: a table of flows,
// the status banner and the row actions bound to keys.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/carmatch/flowadmin/internal/buildinfo"
	"github.com/carmatch/flowadmin/internal/flows"
	"github.com/carmatch/flowadmin/internal/flowview"
)

const defaultTitle = "Flujos n8n"

type Config struct {
	View  *flowview.View
	Title string
	// Open launches the editor link of the selected flow.
	Open func(url string) error
}

// viewChangedMsg is sent whenever the flow view changes state, including
// banner clears fired by timers.
type viewChangedMsg struct{}

type actionDoneMsg struct {
	action string
	id     flows.ID
	err    error
}

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	Run    key.Binding
	Open   key.Binding
	Reload key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "arriba"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "abajo"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "activar/desactivar"),
		),
		Run: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "ejecutar ahora"),
		),
		Open: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "abrir en n8n"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "recargar"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "ayuda"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "salir"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Run, k.Open, k.Reload, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Toggle, k.Run, k.Open, k.Reload},
		{k.Help, k.Quit},
	}
}

var _ help.KeyMap = keyMap{}

type Model struct {
	ctx   context.Context
	view  *flowview.View
	title string
	open  func(string) error

	snap    flowview.Snapshot
	table   table.Model
	spinner spinner.Model
	help    help.Model
	keys    keyMap

	// note is a local message that is not part of the view status, such as
	// a flow without editor link.
	note string

	width  int
	height int
}

func NewModel(ctx context.Context, cfg Config) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	title := strings.TrimSpace(cfg.Title)
	if title == "" {
		title = defaultTitle
	}
	t := table.New(
		table.WithColumns(flowColumns(100)),
		table.WithRows(nil),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(minimalTableStyles())

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = mutedStyle

	m := Model{
		ctx:     ctx,
		view:    cfg.View,
		title:   title,
		open:    cfg.Open,
		table:   t,
		spinner: sp,
		help:    help.New(),
		keys:    defaultKeyMap(),
	}
	m.refresh()
	return m
}

// Run starts the program and loads the flows.
func Run(ctx context.Context, cfg Config) error {
	if cfg.View == nil {
		return errors.New("missing flow view")
	}
	m := NewModel(ctx, cfg)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	cfg.View.OnChange(func() { p.Send(viewChangedMsg{}) })
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCmd())
}

func (m Model) loadCmd() tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{action: "load", err: m.view.Load(m.ctx)}
	}
}

func (m Model) toggleCmd(id flows.ID) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{action: "toggle", id: id, err: m.view.Toggle(m.ctx, id)}
	}
}

func (m Model) runCmd(id flows.ID) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{action: "run", id: id, err: m.view.RunNow(m.ctx, id)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case viewChangedMsg:
		m.refresh()
		return m, nil

	case actionDoneMsg:
		// Rejections of disabled controls leave the banner alone.
		switch {
		case errors.Is(msg.err, flowview.ErrNoWebhook):
			m.note = flows.NoWebhookHint
		case errors.Is(msg.err, flowview.ErrInFlight):
			m.note = ""
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		if m.snap.Loading {
			return m, nil
		}
		m.note = ""
		return m, m.loadCmd()
	}

	row, ok := m.selected()
	switch {
	case key.Matches(msg, m.keys.Toggle):
		if !ok || row.ToggleBusy {
			return m, nil
		}
		m.note = ""
		return m, m.toggleCmd(row.Flow.ID)
	case key.Matches(msg, m.keys.Run):
		if !ok {
			return m, nil
		}
		if !row.Flow.HasWebhook {
			m.note = flows.NoWebhookHint
			return m, nil
		}
		if row.RunBusy {
			return m, nil
		}
		m.note = ""
		return m, m.runCmd(row.Flow.ID)
	case key.Matches(msg, m.keys.Open):
		if !ok {
			return m, nil
		}
		u := row.Flow.SafeEditorURL()
		if u == "" {
			m.note = "Sin enlace al editor"
			return m, nil
		}
		if m.open != nil {
			if err := m.open(u); err != nil {
				m.note = err.Error()
				return m, nil
			}
		}
		m.note = u
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(translateNavKeys(msg))
	return m, cmd
}

func (m Model) selected() (flowview.Row, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.snap.Rows) {
		return flowview.Row{}, false
	}
	return m.snap.Rows[i], true
}

func (m *Model) refresh() {
	if m.view != nil {
		m.snap = m.view.Snapshot()
	}
	rows := make([]table.Row, 0, len(m.snap.Rows))
	for _, r := range m.snap.Rows {
		rows = append(rows, flowRow(r, m.snap))
	}
	m.table.SetRows(normalizeRows(rows, len(m.table.Columns())))
	if c := m.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		m.table.SetCursor(len(rows) - 1)
	}
}

func flowRow(r flowview.Row, snap flowview.Snapshot) table.Row {
	f := r.Flow
	status := flows.StatusLabel(f.Enabled)
	if r.ToggleBusy {
		status += " …"
	}
	webhook := "no"
	if f.HasWebhook {
		webhook = "sí"
	}
	if r.RunBusy {
		webhook += " …"
	}
	return table.Row{
		f.DisplayName(),
		f.DisplaySchedule(),
		f.DisplayFrequency(),
		f.DisplayLastRun(snap.Location),
		status,
		webhook,
	}
}

func flowColumns(total int) []table.Column {
	// name | hora | frecuencia | última ejecución | estado | webhook
	const (
		hourW    = 7
		freqW    = 11
		lastRunW = 22
		statusW  = 12
		hookW    = 9
		padding  = 12
	)
	nameW := maxInt(12, total-hourW-freqW-lastRunW-statusW-hookW-padding)
	return []table.Column{
		{Title: "Flujo", Width: nameW},
		{Title: "Hora", Width: hourW},
		{Title: "Frecuencia", Width: freqW},
		{Title: "Última ejecución", Width: lastRunW},
		{Title: "Estado", Width: statusW},
		{Title: "Webhook", Width: hookW},
	}
}

func (m *Model) layout() {
	if m.width > 0 {
		safeSetColumns(&m.table, flowColumns(m.width))
		m.table.SetWidth(m.width)
		m.help.Width = m.width
	}
	if m.height > 0 {
		// title, banner, blank line and help lines
		reserved := 4 + lipgloss.Height(m.help.View(m.keys))
		m.table.SetHeight(maxInt(3, m.height-reserved))
	}
}

func (m Model) banner() string {
	st := m.snap.Status
	if st.Empty() {
		if m.note != "" {
			return noteStyle.Render(m.note)
		}
		return ""
	}
	msg := st.Message
	if st.Spinner() || m.snap.Busy() {
		msg = m.spinner.View() + " " + msg
	}
	return bannerStyle(st.Kind).Render(msg)
}

func (m Model) body() string {
	switch {
	case m.snap.LoadErr != nil:
		return mutedStyle.Render(flowview.MsgRowsFailed)
	case m.snap.Loaded && len(m.snap.Rows) == 0:
		return mutedStyle.Render(flowview.MsgNoFlows)
	}
	return m.table.View()
}

func (m Model) View() string {
	title := m.title
	if m.width > 0 {
		title = truncateRunes(title, maxInt(m.width-24, 10))
	}
	header := titleStyle.Render(title) + "  " + mutedStyle.Render(buildinfo.Current().Inline())
	parts := []string{header, m.banner(), m.body(), m.help.View(m.keys)}
	return strings.Join(parts, "\n")
}
