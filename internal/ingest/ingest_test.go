package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaiaqa/gaia-scheduler/pkg/types"
)

func TestParseChecklistEnvelope(t *testing.T) {
	data := []byte(`{
		"checklist": [
			{"id": "TC001", "priority": "MUST", "target_url": "https://example.com", "new_elements": 2},
			{"id": "TC002", "priority": "MAY", "no_dom_change": true}
		]
	}`)

	items, err := ParseChecklist(data)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, types.ItemID("TC001"), items[0].ID)
	assert.Equal(t, types.PriorityMust, items[0].Priority)
	assert.Equal(t, "https://example.com", items[0].TargetURL)
	assert.Equal(t, 2, items[0].NewElements)

	assert.Equal(t, types.ItemID("TC002"), items[1].ID)
	assert.True(t, items[1].NoDOMChange)
}

func TestParseChecklistBareArray(t *testing.T) {
	data := []byte(`[{"id": "TC001", "priority": "SHOULD"}]`)

	items, err := ParseChecklist(data)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, types.PriorityShould, items[0].Priority)
}

func TestParseChecklistDropsMalformedEntries(t *testing.T) {
	data := []byte(`[
		{"id": "TC001", "priority": "MUST"},
		{"priority": "MUST"},
		{"id": "TC003"},
		{"id": "", "priority": "MAY"}
	]`)

	items, err := ParseChecklist(data)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, types.ItemID("TC001"), items[0].ID)
}

func TestParseChecklistInvalidJSON(t *testing.T) {
	_, err := ParseChecklist([]byte(`{"checklist": "nope"`))
	assert.Error(t, err)
}

func TestParseItemKeepsOpaquePayload(t *testing.T) {
	item, ok := ParseItem(map[string]interface{}{
		"id":       "TC001",
		"priority": "MUST",
		"steps":    []interface{}{"click", "submit"},
		"owner":    "qa-team",
	})
	require.True(t, ok)

	assert.Equal(t, []interface{}{"click", "submit"}, item.Payload["steps"])
	assert.Equal(t, "qa-team", item.Payload["owner"])

	// Typed fields are lifted, not duplicated in the payload.
	assert.NotContains(t, item.Payload, "id")
	assert.NotContains(t, item.Payload, "priority")
}
