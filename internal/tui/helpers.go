package tui

import (
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

func safeSetColumns(t *table.Model, cols []table.Column) {
	// bubbles/table panics when a row has more values than the columns while
	// the schema changes, so clear rows, set columns, then re-add rows in the
	// new shape.
	n := len(cols)
	rows := t.Rows()

	t.SetRows(nil)
	t.SetColumns(cols)

	if n <= 0 || len(rows) == 0 {
		return
	}
	t.SetRows(normalizeRows(rows, n))
}

func normalizeRows(rows []table.Row, n int) []table.Row {
	fixed := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		switch {
		case len(r) > n:
			fixed = append(fixed, r[:n])
		case len(r) < n:
			p := make(table.Row, n)
			copy(p, r)
			fixed = append(fixed, p)
		default:
			fixed = append(fixed, r)
		}
	}
	return fixed
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func translateNavKeys(msg tea.KeyMsg) tea.KeyMsg {
	switch msg.String() {
	case "ctrl+n":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+p":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "ctrl+f":
		return tea.KeyMsg{Type: tea.KeyPgDown}
	case "ctrl+b":
		return tea.KeyMsg{Type: tea.KeyPgUp}
	default:
		return msg
	}
}
