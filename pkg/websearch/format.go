// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package websearch

import (
	"fmt"
	"strings"
)

// EffectiveCount applies the default and clamps to [MinCount, MaxCount].
func EffectiveCount(count *int) int {
	if count == nil {
		return DefaultCount
	}
	return clampCount(*count)
}

func clampCount(n int) int {
	switch {
	case n < MinCount:
		return MinCount
	case n > MaxCount:
		return MaxCount
	default:
		return n
	}
}

// FormatResults renders results as a numbered list separated by blank lines.
func FormatResults(results []Result) string {
	blocks := make([]string, 0, len(results))
	for i, r := range results {
		blocks = append(blocks, fmt.Sprintf("%d. %s\n   URL: %s\n   %s", i+1, r.Title, r.URL, r.Description))
	}
	return strings.Join(blocks, "\n\n")
}

func resultsText(query string, results []Result) string {
	return "Search results for \"" + query + "\":\n\n" + FormatResults(results)
}

func noResultsText(query string) string {
	return "No results found for: " + query
}
