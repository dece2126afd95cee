package flows

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Display strings shared by every projection of a flow list.
const (
	Placeholder = "—"
	Unnamed     = "(sin nombre)"

	LabelActive   = "Activo"
	LabelInactive = "Inactivo"

	ActionEnable  = "Activar"
	ActionDisable = "Desactivar"
	ActionRunNow  = "Ejecutar ahora"
	ActionEdit    = "Editar flujo"
	ActionOpen    = "Abrir en n8n"

	NoWebhookHint = "Sin webhook configurado"
)

// LastRunLayout mirrors the es-CL locale rendering of a date and time.
const LastRunLayout = "02-01-2006, 15:04:05"

// ID is a flow identifier. The backend may send it as a JSON string or number.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("flow id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

type Flow struct {
	ID           ID     `json:"id"`
	Name         string `json:"name,omitempty"`
	EditorURL    string `json:"n8n_url,omitempty"`
	ScheduleTime string `json:"schedule_time,omitempty"`
	Frequency    string `json:"frequency,omitempty"`
	LastRun      string `json:"last_run,omitempty"`
	Enabled      bool   `json:"enabled"`
	HasWebhook   bool   `json:"has_webhook"`
}

// RunResult is the payload of a run-now request.
type RunResult struct {
	OK     bool   `json:"ok"`
	Status int    `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
	Body   any    `json:"body,omitempty"`
}

// ExecutionStatus summarises the most recent execution of a flow.
type ExecutionStatus struct {
	OK         bool   `json:"ok"`
	Status     string `json:"status"`
	ID         string `json:"id,omitempty"`
	StartedAt  string `json:"startedAt,omitempty"`
	StoppedAt  string `json:"stoppedAt,omitempty"`
	WorkflowID string `json:"workflowId,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (f Flow) DisplayName() string {
	if strings.TrimSpace(f.Name) == "" {
		return Unnamed
	}
	return f.Name
}

func (f Flow) DisplaySchedule() string  { return orPlaceholder(f.ScheduleTime) }
func (f Flow) DisplayFrequency() string { return orPlaceholder(f.Frequency) }

func (f Flow) DisplayLastRun(loc *time.Location) string {
	return FormatLastRun(f.LastRun, loc)
}

// SafeEditorURL returns the editor link only when it is an absolute http(s) URL.
func (f Flow) SafeEditorURL() string { return EditorURL(f.EditorURL) }

func StatusLabel(enabled bool) string {
	if enabled {
		return LabelActive
	}
	return LabelInactive
}

func ToggleLabel(enabled bool) string {
	if enabled {
		return ActionDisable
	}
	return ActionEnable
}

// FormatLastRun renders an ISO timestamp for display. Values that do not
// parse are returned as-is so nothing is silently lost.
func FormatLastRun(iso string, loc *time.Location) string {
	iso = strings.TrimSpace(iso)
	if iso == "" || iso == "null" {
		return Placeholder
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, iso); err == nil {
			return t.In(loc).Format(LastRunLayout)
		}
	}
	return iso
}

func EditorURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.String()
	}
	return ""
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}
