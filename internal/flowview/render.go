package flowview

import (
	"html/template"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/carmatch/flowadmin/internal/flows"
)

// DefaultAdminPath is where the admin page and its row actions are mounted.
const DefaultAdminPath = "/admin/flows/"

var templates = template.Must(template.New("flowview").Parse(rowsTpl + statusTpl + pageTpl))

const rowsTpl = `
{{define "row"}}<tr data-id="{{.ID}}" id="flow-{{.DOMID}}">
  <td class="text-muted"><i class="bi bi-diagram-3 fs-4"></i></td>
  <td>
    <div class="fw-semibold">{{.Name}}</div>
    <div class="small text-muted">{{if .EditorURL}}<a href="{{.EditorURL}}" target="_blank" rel="noopener">{{.OpenLabel}}</a>{{end}}</div>
  </td>
  <td><code>{{.Schedule}}</code></td>
  <td>{{.Frequency}}</td>
  <td>{{.LastRun}}</td>
  <td class="status">{{if .Enabled}}<span class="badge text-bg-success">{{.StatusLabel}}</span>{{else}}<span class="badge text-bg-secondary">{{.StatusLabel}}</span>{{end}}</td>
  <td class="text-end">
    <div class="btn-group">
      <button class="btn btn-outline-secondary btn-sm" data-action="toggle" hx-post="{{.ToggleURL}}" hx-target="closest tr" hx-swap="outerHTML" hx-disabled-elt="this"{{if .ToggleBusy}} disabled{{end}}>{{.ToggleLabel}}</button>
      <a class="btn btn-outline-primary btn-sm" href="{{if .EditorURL}}{{.EditorURL}}{{else}}#{{end}}" target="_blank" rel="noopener">{{.EditLabel}}</a>
      {{if .HasWebhook}}<button class="btn btn-outline-secondary btn-sm" data-action="run" hx-post="{{.RunURL}}" hx-target="closest tr" hx-swap="outerHTML" hx-disabled-elt="this"{{if .RunBusy}} disabled{{end}}>{{.RunLabel}}</button>{{else}}<button class="btn btn-outline-secondary btn-sm" disabled title="{{.NoWebhookHint}}">{{.RunLabel}}</button>{{end}}
    </div>
  </td>
</tr>{{end}}

{{define "rows"}}{{if .Failed}}<tr><td colspan="7">{{.FailedMsg}}</td></tr>{{else if not .Rows}}<tr><td colspan="7">{{.EmptyMsg}}</td></tr>{{else}}{{range .Rows}}{{template "row" .}}
{{end}}{{end}}{{end}}
`

const statusTpl = `
{{define "status"}}<div id="state"{{if .OOB}} hx-swap-oob="true"{{end}}{{if .Poll}} hx-get="{{.PollURL}}" hx-trigger="load delay:{{.PollDelay}}" hx-swap="outerHTML"{{end}}>{{if .Message}}<div class="alert {{.Class}} mb-0">{{if .Spinner}}<span class="spinner-border spinner-border-sm me-2"></span>{{end}}{{.Message}}</div>{{end}}</div>{{end}}
`

const pageTpl = `
{{define "page"}}<!doctype html>
<html lang="es">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/bootstrap@5.3.3/dist/css/bootstrap.min.css">
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/bootstrap-icons@1.11.3/font/bootstrap-icons.min.css">
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
</head>
<body hx-headers='{{.HeadersJSON}}'>
<main class="container py-4">
  <div class="d-flex justify-content-between align-items-center mb-3">
    <h1 class="h4 mb-0">{{.Title}}</h1>
    <button class="btn btn-outline-secondary btn-sm" hx-post="{{.ReloadURL}}" hx-target="#rows" hx-swap="innerHTML">Recargar</button>
  </div>
  {{template "status" .Status}}
  <table class="table align-middle mt-3">
    <thead><tr><th></th><th>Flujo</th><th>Hora</th><th>Frecuencia</th><th>Última ejecución</th><th>Estado</th><th></th></tr></thead>
    <tbody id="rows">{{template "rows" .Rows}}</tbody>
  </table>
</main>
</body>
</html>{{end}}
`

// Renderer projects a Snapshot to HTML. Every backend supplied string goes
// through html/template escaping.
type Renderer struct {
	AdminPath string
}

type rowData struct {
	ID, DOMID     string
	Name          string
	EditorURL     string
	Schedule      string
	Frequency     string
	LastRun       string
	Enabled       bool
	StatusLabel   string
	ToggleLabel   string
	ToggleURL     string
	RunURL        string
	HasWebhook    bool
	ToggleBusy    bool
	RunBusy       bool
	OpenLabel     string
	EditLabel     string
	RunLabel      string
	NoWebhookHint string
}

type rowsData struct {
	Rows      []rowData
	Failed    bool
	FailedMsg string
	EmptyMsg  string
}

type statusData struct {
	Message   string
	Class     string
	Spinner   bool
	OOB       bool
	Poll      bool
	PollURL   string
	PollDelay string
}

type pageData struct {
	Title       string
	HeadersJSON string
	ReloadURL   string
	Status      statusData
	Rows        rowsData
}

// Page is the input of RenderPage.
type Page struct {
	Title     string
	CSRFToken string
	Snapshot  Snapshot
}

func (r Renderer) base() string {
	p := strings.TrimSpace(r.AdminPath)
	if p == "" {
		p = DefaultAdminPath
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

func (r Renderer) actionURL(id flows.ID, action string) string {
	return r.base() + url.PathEscape(id.String()) + "/" + action + "/"
}

func (r Renderer) rowData(row Row, loc *time.Location) rowData {
	f := row.Flow
	return rowData{
		ID:            f.ID.String(),
		DOMID:         domID(f.ID.String()),
		Name:          f.DisplayName(),
		EditorURL:     f.SafeEditorURL(),
		Schedule:      f.DisplaySchedule(),
		Frequency:     f.DisplayFrequency(),
		LastRun:       f.DisplayLastRun(loc),
		Enabled:       f.Enabled,
		StatusLabel:   flows.StatusLabel(f.Enabled),
		ToggleLabel:   flows.ToggleLabel(f.Enabled),
		ToggleURL:     r.actionURL(f.ID, "toggle"),
		RunURL:        r.actionURL(f.ID, "run-now"),
		HasWebhook:    f.HasWebhook,
		ToggleBusy:    row.ToggleBusy,
		RunBusy:       row.RunBusy,
		OpenLabel:     flows.ActionOpen,
		EditLabel:     flows.ActionEdit,
		RunLabel:      flows.ActionRunNow,
		NoWebhookHint: flows.NoWebhookHint,
	}
}

func (r Renderer) rowsData(s Snapshot) rowsData {
	out := rowsData{
		Failed:    s.LoadErr != nil,
		FailedMsg: MsgRowsFailed,
		EmptyMsg:  MsgNoFlows,
	}
	for _, row := range s.Rows {
		out.Rows = append(out.Rows, r.rowData(row, s.Location))
	}
	return out
}

func (r Renderer) statusData(st Status, oob bool) statusData {
	out := statusData{OOB: oob}
	if st.Empty() {
		return out
	}
	out.Message = st.Message
	out.Spinner = st.Spinner()
	switch st.Kind {
	case StatusSuccess:
		out.Class = "alert-success"
	case StatusDanger:
		out.Class = "alert-danger"
	default:
		out.Class = "alert-secondary"
	}
	if !st.Sticky {
		out.Poll = true
		out.PollURL = r.base() + "status/"
		out.PollDelay = ClearDelay.String()
	}
	return out
}

// RenderRow writes one table row.
func (r Renderer) RenderRow(w io.Writer, row Row, loc *time.Location) error {
	return templates.ExecuteTemplate(w, "row", r.rowData(row, loc))
}

// RenderRows writes the row container contents: the rows, or a single
// placeholder row when the list is empty or failed to load.
func (r Renderer) RenderRows(w io.Writer, s Snapshot) error {
	return templates.ExecuteTemplate(w, "rows", r.rowsData(s))
}

// RenderStatus writes the banner element. With oob set it is marked for an
// out-of-band swap so it can ride along a row fragment.
func (r Renderer) RenderStatus(w io.Writer, st Status, oob bool) error {
	return templates.ExecuteTemplate(w, "status", r.statusData(st, oob))
}

func (r Renderer) RenderPage(w io.Writer, p Page) error {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		title = "Flujos n8n"
	}
	headers := "{}"
	if tok := strings.TrimSpace(p.CSRFToken); tok != "" {
		headers = `{"X-CSRFToken": "` + template.JSEscapeString(tok) + `"}`
	}
	return templates.ExecuteTemplate(w, "page", pageData{
		Title:       title,
		HeadersJSON: headers,
		ReloadURL:   r.base() + "reload/",
		Status:      r.statusData(p.Snapshot.Status, false),
		Rows:        r.rowsData(p.Snapshot),
	})
}

func domID(id string) string {
	var b strings.Builder
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
