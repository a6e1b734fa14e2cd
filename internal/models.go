package internal

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SourceKind identifies which upstream produced an item
type SourceKind string

const (
	SourceCodeHost     SourceKind = "code_host"
	SourceRelayNetwork SourceKind = "relay_network"
)

// Valid reports whether k is one of the known source kinds
func (k SourceKind) Valid() bool {
	switch k {
	case SourceCodeHost, SourceRelayNetwork:
		return true
	default:
		return false
	}
}

// ParseSourceKind parses a source kind from user input. An empty string yields
// an empty kind, meaning "all sources".
func ParseSourceKind(s string) (SourceKind, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "":
		return "", nil
	case "code_host", "github":
		return SourceCodeHost, nil
	case "relay_network", "nostr":
		return SourceRelayNetwork, nil
	default:
		return "", fmt.Errorf("unknown source kind: %s (supported: code_host, relay_network)", s)
	}
}

// Metadata is the open bag of source-specific detail attached to an item
type Metadata map[string]any

// NormalizedItem is the unified shape every adapter emits
type NormalizedItem struct {
	SourceKind  SourceKind `json:"source_kind" yaml:"source_kind"`
	ExternalID  string     `json:"external_id" yaml:"external_id"`
	Title       string     `json:"title" yaml:"title"`
	Body        string     `json:"body" yaml:"body"`
	URL         string     `json:"url" yaml:"url"`
	PublishedAt time.Time  `json:"published_at" yaml:"published_at"`
	Metadata    Metadata   `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Validate checks the fields the store requires before an insert is attempted
func (it NormalizedItem) Validate() error {
	if !it.SourceKind.Valid() {
		return fmt.Errorf("invalid source kind %q", it.SourceKind)
	}
	if strings.TrimSpace(it.ExternalID) == "" {
		return fmt.Errorf("external id is required")
	}
	if strings.TrimSpace(it.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if strings.TrimSpace(it.URL) == "" {
		return fmt.Errorf("url is required")
	}
	if it.PublishedAt.IsZero() {
		return fmt.Errorf("published_at is required")
	}
	return nil
}

// String renders the item for diagnostics
func (it NormalizedItem) String() string {
	b, err := json.Marshal(it)
	if err != nil {
		return fmt.Sprintf("%+v", struct {
			SourceKind SourceKind
			ExternalID string
			Title      string
		}{it.SourceKind, it.ExternalID, it.Title})
	}
	return string(b)
}

// PersistedItem is a stored item plus its storage identity and audit timestamps
type PersistedItem struct {
	ID             int64 `json:"id" yaml:"id"`
	NormalizedItem `yaml:",inline"`
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" yaml:"updated_at"`
}

// UpsertResult counts the outcome of a batch upsert
type UpsertResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// RunSummary is the observable result of one ingestion run
type RunSummary struct {
	Created int `json:"created" yaml:"created"`
	Skipped int `json:"skipped" yaml:"skipped"`
	Deleted int `json:"deleted" yaml:"deleted"`
}

// FetchResult is what every source hands back to the pipeline. Items holds
// whatever survived; Err describes what did not. Both may be set when a
// source partially succeeds.
type FetchResult struct {
	Source string
	Kind   SourceKind
	Items  []NormalizedItem
	Err    error
}

// OK reports whether the fetch completed without any failure
func (r FetchResult) OK() bool {
	return r.Err == nil
}
