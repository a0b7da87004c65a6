// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"encoding/json"
	"testing"
)

func TestSchemaJSON(t *testing.T) {
	tool := NewFunctionTool("brave_search", "Search the web", map[string]any{
		"type":     "object",
		"required": []string{"query"},
	})
	if tool.Type != ToolTypeFunction {
		t.Fatalf("expected function tool, got %s", tool.Type)
	}
	raw, err := tool.SchemaJSON()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["type"] != "object" {
		t.Fatalf("unexpected schema %s", raw)
	}
}

func TestSchemaJSON_RawAndNil(t *testing.T) {
	raw := json.RawMessage(`{"type":"object","properties":{"q":{"type":"string"}}}`)
	got, err := NewFunctionTool("search", "", raw).SchemaJSON()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if string(got) != string(raw) {
		t.Fatalf("expected raw schema passthrough, got %s", got)
	}

	empty, err := NewFunctionTool("noop", "", nil).SchemaJSON()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if string(empty) != `{"type":"object","properties":{}}` {
		t.Fatalf("unexpected empty schema %s", empty)
	}
}
