// ============================================================================
// Checklist Ingestion
// ============================================================================
//
// Package: internal/ingest
// File: ingest.go
// Purpose: Parse test-item checklists produced by upstream analysis agents.
//
// Accepted shapes:
//   {"checklist": [ {...}, ... ]}   (agent envelope)
//   [ {...}, ... ]                  (bare item array)
//
// Each raw item must carry a non-empty "id" and a "priority" field; entries
// missing either are silently dropped, since upstream producers are
// best-effort and partial/garbage input is filterable noise, not an error.
// Fields the scheduler does not read ride along in the item's opaque payload.
//
// ============================================================================

package ingest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gaiaqa/gaia-scheduler/pkg/types"
)

// Fields lifted out of the raw map into typed TestItem fields.
var typedFields = map[string]struct{}{
	"id":            {},
	"priority":      {},
	"new_elements":  {},
	"target_url":    {},
	"no_dom_change": {},
}

type envelope struct {
	Checklist []map[string]interface{} `json:"checklist"`
}

// ParseChecklist decodes a checklist document into test items, dropping
// malformed entries. An error is returned only when the document itself is
// not valid JSON in either accepted shape.
func ParseChecklist(data []byte) ([]types.TestItem, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err == nil && env.Checklist != nil {
		return parseRawItems(env.Checklist), nil
	}

	var raw []map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("checklist is neither an envelope nor an item array: %w", err)
	}

	return parseRawItems(raw), nil
}

// LoadChecklistFile reads and parses a checklist JSON file.
func LoadChecklistFile(path string) ([]types.TestItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checklist file: %w", err)
	}
	return ParseChecklist(data)
}

func parseRawItems(raw []map[string]interface{}) []types.TestItem {
	items := make([]types.TestItem, 0, len(raw))
	for _, entry := range raw {
		if item, ok := ParseItem(entry); ok {
			items = append(items, item)
		}
	}
	return items
}

// ParseItem converts one raw map into a TestItem. The second return value is
// false when the entry lacks the required id or priority fields.
func ParseItem(raw map[string]interface{}) (types.TestItem, bool) {
	id, _ := raw["id"].(string)
	if id == "" {
		return types.TestItem{}, false
	}

	priorityValue, present := raw["priority"]
	if !present {
		return types.TestItem{}, false
	}
	priority, _ := priorityValue.(string)

	item := types.TestItem{
		ID:       types.ItemID(id),
		Priority: types.Priority(priority),
	}

	if n, ok := raw["new_elements"].(float64); ok && n > 0 {
		item.NewElements = int(n)
	}
	if url, ok := raw["target_url"].(string); ok {
		item.TargetURL = url
	}
	if flag, ok := raw["no_dom_change"].(bool); ok {
		item.NoDOMChange = flag
	}

	for key, value := range raw {
		if _, typed := typedFields[key]; typed {
			continue
		}
		if item.Payload == nil {
			item.Payload = make(map[string]interface{})
		}
		item.Payload[key] = value
	}

	return item, true
}
