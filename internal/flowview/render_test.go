package flowview

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/carmatch/flowadmin/internal/flows"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderRows(t *testing.T, s Snapshot) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Renderer{}.RenderRows(&buf, s))
	return buf.String()
}

func TestRenderRows_SyncScenario(t *testing.T) {
	out := renderRows(t, Snapshot{Rows: []Row{{Flow: syncFlow()}}, Location: time.UTC})

	assert.Equal(t, 1, strings.Count(out, "<tr "))
	assert.Contains(t, out, `data-id="1"`)
	assert.Contains(t, out, ">Sync<")
	assert.Contains(t, out, `<span class="badge text-bg-secondary">Inactivo</span>`)
	assert.Contains(t, out, ">Activar</button>")
	assert.Contains(t, out, "<code>08:00</code>")
	assert.Contains(t, out, "01-01-2024, 08:00:00")
	assert.Contains(t, out, `data-action="run"`)
	assert.NotContains(t, out, noWebhookTitle())
}

func noWebhookTitle() string { return `title="` + flows.NoWebhookHint + `"` }

func TestRenderRows_EnabledFlow(t *testing.T) {
	f := syncFlow()
	f.Enabled = true
	out := renderRows(t, Snapshot{Rows: []Row{{Flow: f}}})

	assert.Contains(t, out, `<span class="badge text-bg-success">Activo</span>`)
	assert.Contains(t, out, ">Desactivar</button>")
}

func TestRenderRows_RunDisabledWithoutWebhook(t *testing.T) {
	f := syncFlow()
	f.HasWebhook = false
	out := renderRows(t, Snapshot{Rows: []Row{{Flow: f}}})

	assert.Contains(t, out, noWebhookTitle())
	assert.Contains(t, out, " disabled ")
	assert.NotContains(t, out, `data-action="run"`)
}

func TestRenderRows_PlaceholdersNeverEmpty(t *testing.T) {
	out := renderRows(t, Snapshot{Rows: []Row{{Flow: flows.Flow{ID: "9"}}}})

	assert.Contains(t, out, flows.Unnamed)
	assert.Contains(t, out, "<code>—</code>")
	assert.Equal(t, 3, strings.Count(out, "—"))
	assert.NotContains(t, out, "undefined")
	assert.NotContains(t, out, "null")
	assert.NotContains(t, out, "<td></td>")
}

func TestRenderRows_EmptyAndFailedPlaceholders(t *testing.T) {
	out := renderRows(t, Snapshot{Loaded: true})
	assert.Equal(t, 1, strings.Count(out, "<tr>"))
	assert.Contains(t, out, `<td colspan="7">No hay flujos configurados.</td>`)

	out = renderRows(t, Snapshot{Loaded: true, LoadErr: errors.New("x")})
	assert.Equal(t, 1, strings.Count(out, "<tr>"))
	assert.Contains(t, out, "No se pudieron cargar las fuentes.")
}

func TestRenderRows_EscapesBackendStrings(t *testing.T) {
	f := flows.Flow{ID: `1"><x`, Name: `<script>alert(1)</script>`, EditorURL: "javascript:alert(1)"}
	out := renderRows(t, Snapshot{Rows: []Row{{Flow: f}}})

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.NotContains(t, out, "javascript:")
	assert.NotContains(t, out, `"><x`)
	assert.Contains(t, out, `href="#"`)
}

func TestRenderRow_ActionURLs(t *testing.T) {
	var buf bytes.Buffer
	r := Renderer{AdminPath: "/ops/flows"}
	require.NoError(t, r.RenderRow(&buf, Row{Flow: syncFlow(), ToggleBusy: true}, time.UTC))
	out := buf.String()

	assert.Contains(t, out, `hx-post="/ops/flows/1/toggle/"`)
	assert.Contains(t, out, `hx-post="/ops/flows/1/run-now/"`)
	assert.Contains(t, out, `hx-disabled-elt="this" disabled>Activar</button>`)
}

func TestRenderStatus(t *testing.T) {
	r := Renderer{}

	var buf bytes.Buffer
	require.NoError(t, r.RenderStatus(&buf, Status{}, false))
	assert.Equal(t, `<div id="state"></div>`, buf.String())

	buf.Reset()
	require.NoError(t, r.RenderStatus(&buf, Status{Kind: StatusSuccess, Message: MsgToggled, Generation: 3}, true))
	out := buf.String()
	assert.Contains(t, out, `hx-swap-oob="true"`)
	assert.Contains(t, out, `alert alert-success mb-0`)
	assert.Contains(t, out, `hx-get="/admin/flows/status/"`)
	assert.Contains(t, out, `load delay:1.6s`)

	buf.Reset()
	require.NoError(t, r.RenderStatus(&buf, Status{Kind: StatusDanger, Message: MsgLoadFailed, Sticky: true}, false))
	out = buf.String()
	assert.Contains(t, out, "alert-danger")
	assert.NotContains(t, out, "hx-get")

	buf.Reset()
	require.NoError(t, r.RenderStatus(&buf, Status{Kind: StatusInfo, Message: MsgRunning}, false))
	assert.Contains(t, buf.String(), "spinner-border")
}

func TestRenderPage_IncludesCSRFHeaderAndRows(t *testing.T) {
	var buf bytes.Buffer
	err := Renderer{}.RenderPage(&buf, Page{
		CSRFToken: "tok",
		Snapshot:  Snapshot{Rows: []Row{{Flow: syncFlow()}}, Location: time.UTC},
	})
	require.NoError(t, err)
	out := buf.String()

	assert.Contains(t, out, "X-CSRFToken")
	assert.Contains(t, out, "tok")
	assert.Contains(t, out, `<tbody id="rows">`)
	assert.Contains(t, out, ">Sync<")
	assert.Contains(t, out, "<title>Flujos n8n</title>")
}
