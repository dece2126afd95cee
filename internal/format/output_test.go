package format

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestWriteJSON_PrettyAndCompact(t *testing.T) {
	var buf bytes.Buffer
	v := map[string]any{"a": 1, "b": "x"}

	if err := WriteJSON(&buf, v, false); err != nil {
		t.Fatalf("WriteJSON compact: %v", err)
	}
	got := buf.String()
	if !strings.HasSuffix(got, "\n") {
		t.Fatalf("expected trailing newline, got %q", got)
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(got)), &parsed); err != nil {
		t.Fatalf("expected valid json, got %v (%q)", err, got)
	}

	buf.Reset()
	if err := WriteJSON(&buf, v, true); err != nil {
		t.Fatalf("WriteJSON pretty: %v", err)
	}
	gotPretty := buf.String()
	if !strings.Contains(gotPretty, "\n  ") {
		t.Fatalf("expected indented json, got %q", gotPretty)
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, map[string]any{"a": 1}, "nope", false)
	if err == nil {
		t.Fatal("expected error")
	}
}

type fakeTable struct{}

func (fakeTable) Headers() []string { return []string{"ID", "Nombre"} }
func (fakeTable) Rows() [][]string {
	return [][]string{{"1", "Sync"}, {"2", "Report"}}
}

func TestWrite_Table(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, fakeTable{}, "table", false); err != nil {
		t.Fatalf("Write table: %v", err)
	}
	got := buf.String()
	for _, want := range []string{"ID", "Nombre", "Sync", "Report"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in table output:\n%s", want, got)
		}
	}
	if strings.Index(got, "Sync") > strings.Index(got, "Report") {
		t.Fatalf("expected rows in order:\n%s", got)
	}
}

func TestWrite_TableFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, map[string]any{"ok": true}, "table", false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var parsed map[string]any
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("expected json fallback, got %q", buf.String())
	}
}
