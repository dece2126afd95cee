package flows

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlow_UnmarshalAcceptsNumericAndStringIDs(t *testing.T) {
	var got []Flow
	err := json.Unmarshal([]byte(`[{"id":1,"name":"Sync"},{"id":"XeE1r9jt7Z6Sdghb"},{"id":null}]`), &got)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, ID("1"), got[0].ID)
	assert.Equal(t, ID("XeE1r9jt7Z6Sdghb"), got[1].ID)
	assert.Equal(t, ID(""), got[2].ID)
}

func TestFlow_PlaceholdersForMissingFields(t *testing.T) {
	var f Flow
	require.NoError(t, json.Unmarshal([]byte(`{"id":7,"name":null,"schedule_time":null,"frequency":"","last_run":null}`), &f))

	assert.Equal(t, Unnamed, f.DisplayName())
	assert.Equal(t, Placeholder, f.DisplaySchedule())
	assert.Equal(t, Placeholder, f.DisplayFrequency())
	assert.Equal(t, Placeholder, f.DisplayLastRun(time.UTC))
}

func TestFormatLastRun(t *testing.T) {
	santiago := time.FixedZone("CLT", -3*3600)

	assert.Equal(t, "01-01-2024, 08:00:00", FormatLastRun("2024-01-01T08:00:00Z", time.UTC))
	assert.Equal(t, "01-01-2024, 05:00:00", FormatLastRun("2024-01-01T08:00:00Z", santiago))
	assert.Equal(t, "02-03-2024, 10:11:12", FormatLastRun("2024-03-02T10:11:12.345Z", time.UTC))
	assert.Equal(t, Placeholder, FormatLastRun("  ", time.UTC))
	assert.Equal(t, "yesterday", FormatLastRun("yesterday", time.UTC))
}

func TestLabelsAgreeWithEnabled(t *testing.T) {
	assert.Equal(t, LabelActive, StatusLabel(true))
	assert.Equal(t, ActionDisable, ToggleLabel(true))
	assert.Equal(t, LabelInactive, StatusLabel(false))
	assert.Equal(t, ActionEnable, ToggleLabel(false))
}

func TestEditorURL_OnlyHTTP(t *testing.T) {
	assert.Equal(t, "https://n8n.example.com/workflow/1", EditorURL(" https://n8n.example.com/workflow/1 "))
	assert.Equal(t, "", EditorURL("javascript:alert(1)"))
	assert.Equal(t, "", EditorURL("/workflow/1"))
	assert.Equal(t, "", EditorURL(""))
}
