// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/jllopis/pi-extensions/pkg/errors"
	"github.com/jllopis/pi-extensions/pkg/extension"
	"github.com/jllopis/pi-extensions/pkg/llm"
)

const missingKeyText = "Error: BRAVE_API_KEY environment variable not set. Get an API key from https://brave.com/search/api/"

// Params are the tool arguments.
type Params struct {
	Query string   `json:"query"`
	Count *float64 `json:"count,omitempty"`
}

// ParametersSchema is the JSON schema advertised for the tool.
func ParametersSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Search query",
			},
			"count": map[string]any{
				"type":        "number",
				"description": "Number of results (default 5, max 20)",
			},
		},
		"required": []string{"query"},
	}
}

// Tool exposes Client.Search as the brave_search tool.
type Tool struct {
	client *Client
}

// NewTool wraps client.
func NewTool(client *Client) *Tool {
	return &Tool{client: client}
}

func (t *Tool) Name() string  { return ToolName }
func (t *Tool) Label() string { return ToolLabel }

func (t *Tool) Definition() llm.Tool {
	return llm.NewFunctionTool(ToolName, toolDescription, ParametersSchema())
}

// Execute runs a search and describes every result, including failures, as an Outcome.
func (t *Tool) Execute(ctx context.Context, _ string, raw json.RawMessage, _ *extension.Context) extension.Outcome {
	if !t.client.HasAPIKey() {
		return failureOutcome(errors.New(errors.CodeMissingAPIKey, "BRAVE_API_KEY not set", nil))
	}
	params, err := parseParams(raw)
	if err != nil {
		return extension.FailureOutcome(errors.CodeInvalidInput, "Search failed: "+err.Error(),
			map[string]any{"error": err.Error()})
	}

	var count *int
	if params.Count != nil {
		n := int(math.Floor(math.Max(math.Min(*params.Count, MaxCount), MinCount)))
		count = &n
	}

	results, err := t.client.Search(ctx, params.Query, EffectiveCount(count))
	if err != nil {
		return failureOutcome(err)
	}
	if len(results) == 0 {
		return extension.TextOutcome(noResultsText(params.Query), map[string]any{
			"query": params.Query,
			"count": 0,
		})
	}
	return extension.TextOutcome(resultsText(params.Query, results), map[string]any{
		"query":   params.Query,
		"count":   len(results),
		"results": results,
	})
}

// parseParams decodes the tool arguments. An empty query is forwarded to the
// provider as is; only bodies that do not decode are rejected.
func parseParams(raw json.RawMessage) (Params, error) {
	var p Params
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("invalid parameters: %w", err)
	}
	return p, nil
}

func failureOutcome(err error) extension.Outcome {
	te, ok := errors.As(err)
	if !ok {
		te = errors.New(errors.CodeInternal, err.Error(), err)
	}
	switch te.Code {
	case errors.CodeMissingAPIKey:
		return extension.FailureOutcome(te.Code, missingKeyText, map[string]any{"error": string(te.Code)})
	case errors.CodeAPIError:
		statusText, _ := te.Context["status_text"].(string)
		body, _ := te.Context["body"].(string)
		text := fmt.Sprintf("Brave Search API error: %d %s\n%s", te.StatusCode, statusText, body)
		return extension.FailureOutcome(te.Code, text, map[string]any{
			"error":  string(te.Code),
			"status": te.StatusCode,
		})
	case errors.CodeCancelled:
		return extension.FailureOutcome(te.Code, "Search cancelled", map[string]any{"error": string(te.Code)})
	default:
		return extension.FailureOutcome(errors.CodeInternal, "Search failed: "+te.Message,
			map[string]any{"error": te.Message})
	}
}
