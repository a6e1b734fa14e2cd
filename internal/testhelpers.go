package internal

import (
	"database/sql"
	"testing"
	"time"
)

// CreateTestItem creates a valid code-host item published at publishedAt
func CreateTestItem(externalID string, publishedAt time.Time) NormalizedItem {
	return NormalizedItem{
		SourceKind:  SourceCodeHost,
		ExternalID:  externalID,
		Title:       "2 commits to sitrep",
		Body:        "Code changes pushed",
		URL:         "https://github.com/11bDev-FOB/sitrep",
		PublishedAt: publishedAt.UTC(),
		Metadata: Metadata{
			"repo_name":     "sitrep",
			"commits_count": 2,
			"event_type":    "push",
		},
	}
}

// CreateTestRelayItem creates a valid relay-network item
func CreateTestRelayItem(eventID string, publishedAt time.Time) NormalizedItem {
	return NormalizedItem{
		SourceKind:  SourceRelayNetwork,
		ExternalID:  "nostr-" + eventID,
		Title:       nostrNoteTitle,
		Body:        "shipping it #11bdev",
		URL:         "https://njump.me/" + eventID,
		PublishedAt: publishedAt.UTC(),
		Metadata: Metadata{
			"platform": "nostr",
			"event_id": eventID,
		},
	}
}

// CreateTestStore opens a migrated in-memory store pinned to now
func CreateTestStore(t *testing.T, db *sql.DB, now time.Time) *ItemStore {
	t.Helper()
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewItemStore(db).WithClock(func() time.Time { return now })
}
