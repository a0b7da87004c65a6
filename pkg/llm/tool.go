// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package llm holds the function-tool definition types shared with model
// providers and MCP clients.
package llm

import "encoding/json"

// ToolType represents the type of tool.
type ToolType string

const (
	ToolTypeFunction ToolType = "function"
)

// FunctionDef defines a function tool.
type FunctionDef struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters"` // JSON Schema
}

// Tool represents a tool available to the LLM.
type Tool struct {
	Type     ToolType    `json:"type"`
	Function FunctionDef `json:"function"`
}

// NewFunctionTool builds a function tool definition.
func NewFunctionTool(name, description string, parameters any) Tool {
	return Tool{
		Type: ToolTypeFunction,
		Function: FunctionDef{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}

// SchemaJSON returns the parameters schema encoded as JSON.
func (t Tool) SchemaJSON() (json.RawMessage, error) {
	switch params := t.Function.Parameters.(type) {
	case nil:
		return json.RawMessage(`{"type":"object","properties":{}}`), nil
	case json.RawMessage:
		return params, nil
	case []byte:
		return json.RawMessage(params), nil
	default:
		return json.Marshal(params)
	}
}
