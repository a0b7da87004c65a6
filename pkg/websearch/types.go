// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

// Package websearch adapts the Brave Search web API into an agent tool.
package websearch

import (
	"time"

	"github.com/jllopis/pi-extensions/pkg/config"
)

const (
	ToolName  = "brave_search"
	ToolLabel = "Brave Search"

	// ExtensionName is the name used in extensions.enabled.
	ExtensionName = "brave-search"

	DefaultBaseURL = "https://api.search.brave.com"
	searchPath     = "/res/v1/web/search"

	DefaultCount = 5
	MinCount     = 1
	MaxCount     = 20
)

const toolDescription = "Search the web using Brave Search API. Use this to find current information, documentation, or answers to questions."

// Result is a single web search hit, in provider order.
type Result struct {
	Title       string `json:"title" yaml:"title"`
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description" yaml:"description"`
}

// braveResponse is the subset of the Brave web search payload we read.
type braveResponse struct {
	Web *struct {
		Results []Result `json:"results"`
	} `json:"web,omitempty"`
	Query *struct {
		Original string `json:"original"`
	} `json:"query,omitempty"`
}

// Config holds client settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Timeout     time.Duration
	RateLimit   float64 // requests per second, 0 disables limiting
	Burst       int
	MaxAttempts int
}

// DefaultConfig matches the provider's free tier: one request per second.
func DefaultConfig() Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		Timeout:     30 * time.Second,
		RateLimit:   1,
		Burst:       1,
		MaxAttempts: 1,
	}
}

// ConfigFromSettings converts the loaded search section.
func ConfigFromSettings(s config.SearchConfig) Config {
	cfg := DefaultConfig()
	cfg.APIKey = s.APIKey
	if s.BaseURL != "" {
		cfg.BaseURL = s.BaseURL
	}
	if s.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(s.TimeoutSeconds) * time.Second
	}
	cfg.RateLimit = s.RateLimit
	if s.Burst > 0 {
		cfg.Burst = s.Burst
	}
	if s.MaxAttempts > 0 {
		cfg.MaxAttempts = s.MaxAttempts
	}
	return cfg
}
