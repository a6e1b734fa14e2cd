package internal

import "fmt"

// SourceError represents a transient failure talking to an upstream source
type SourceError struct {
	Source string // "github", "nostr"
	Target string // request URL or relay endpoint
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source error [%s] %s: %v", e.Source, e.Target, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// KeyError represents a failure resolving the relay identity key
type KeyError struct {
	Key string
	Err error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("key error %s: %v", e.Key, e.Err)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

// StoreError represents errors persisting or querying items
type StoreError struct {
	Op         string // "upsert", "prune", "query", "migrate"
	ExternalID string
	Err        error
}

func (e *StoreError) Error() string {
	if e.ExternalID == "" {
		return fmt.Sprintf("store error: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store error: %s %s: %v", e.Op, e.ExternalID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ConfigError represents an invalid configuration value
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error [%s]: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
