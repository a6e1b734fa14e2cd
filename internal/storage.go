package internal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ItemStore owns the persisted sitrep items
type ItemStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewItemStore creates a new ItemStore over an already migrated database
func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db, now: time.Now}
}

// WithClock replaces the store's time source
func (s *ItemStore) WithClock(now func() time.Time) *ItemStore {
	s.now = now
	return s
}

// FeedQuery narrows a feed listing
type FeedQuery struct {
	Kind  SourceKind // empty means all sources
	Limit int        // <= 0 means no limit
	Since time.Time  // zero means no lower bound
}

const insertItemSQL = `INSERT INTO sitrep_items
	(source_kind, external_id, title, body, url, published_at, metadata, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (external_id) DO NOTHING`

// UpsertEach inserts every item whose external id has not been seen before.
// Existing rows are never overwritten. A failing item is logged with its
// payload and counted as skipped; the batch continues.
func (s *ItemStore) UpsertEach(ctx context.Context, items []NormalizedItem) UpsertResult {
	var res UpsertResult
	for _, item := range items {
		created, err := s.insertIfAbsent(ctx, item)
		if err != nil {
			LogError("Error saving sitrep item: %v", err)
			LogError("Item data: %s", item)
			res.Skipped++
			continue
		}
		if created {
			res.Created++
		} else {
			LogDebug("Skipped duplicate item: %s", item.ExternalID)
			res.Skipped++
		}
	}
	return res
}

func (s *ItemStore) insertIfAbsent(ctx context.Context, item NormalizedItem) (bool, error) {
	if err := item.Validate(); err != nil {
		return false, &StoreError{Op: "upsert", ExternalID: item.ExternalID, Err: err}
	}

	meta := item.Metadata
	if meta == nil {
		meta = Metadata{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return false, &StoreError{Op: "upsert", ExternalID: item.ExternalID, Err: fmt.Errorf("failed to encode metadata: %w", err)}
	}

	now := s.now().UTC().UnixMilli()
	result, err := s.db.ExecContext(ctx, insertItemSQL,
		string(item.SourceKind),
		item.ExternalID,
		item.Title,
		item.Body,
		item.URL,
		item.PublishedAt.UTC().UnixMilli(),
		string(metaJSON),
		now,
		now,
	)
	if err != nil {
		return false, &StoreError{Op: "upsert", ExternalID: item.ExternalID, Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, &StoreError{Op: "upsert", ExternalID: item.ExternalID, Err: err}
	}
	return affected == 1, nil
}

// Prune deletes every item published strictly before now-olderThan
func (s *ItemStore) Prune(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.now().Add(-olderThan).UTC().UnixMilli()
	result, err := s.db.ExecContext(ctx, "DELETE FROM sitrep_items WHERE published_at < ?", cutoff)
	if err != nil {
		return 0, &StoreError{Op: "prune", Err: err}
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, &StoreError{Op: "prune", Err: err}
	}
	return int(deleted), nil
}

const selectItemSQL = `SELECT id, source_kind, external_id, title, body, url, published_at, metadata, created_at, updated_at
	FROM sitrep_items`

// Recent returns items newest first
func (s *ItemStore) Recent(ctx context.Context, q FeedQuery) ([]*PersistedItem, error) {
	var (
		where []string
		args  []any
	)
	if q.Kind != "" {
		where = append(where, "source_kind = ?")
		args = append(args, string(q.Kind))
	}
	if !q.Since.IsZero() {
		where = append(where, "published_at >= ?")
		args = append(args, q.Since.UTC().UnixMilli())
	}

	query := selectItemSQL
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY published_at DESC, id DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StoreError{Op: "query", Err: err}
	}
	defer rows.Close()

	var items []*PersistedItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, &StoreError{Op: "query", Err: err}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "query", Err: fmt.Errorf("rows iteration error: %w", err)}
	}
	return items, nil
}

// Get returns the item with the given external id, or nil when absent
func (s *ItemStore) Get(ctx context.Context, externalID string) (*PersistedItem, error) {
	row := s.db.QueryRowContext(ctx, selectItemSQL+" WHERE external_id = ?", externalID)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &StoreError{Op: "query", ExternalID: externalID, Err: err}
	}
	return item, nil
}

// Count returns the number of stored items for kind (all kinds when empty)
func (s *ItemStore) Count(ctx context.Context, kind SourceKind) (int, error) {
	return s.CountSince(ctx, time.Time{}, kind)
}

// CountSince counts items published at or after since
func (s *ItemStore) CountSince(ctx context.Context, since time.Time, kind SourceKind) (int, error) {
	query := "SELECT COUNT(*) FROM sitrep_items WHERE published_at >= ?"
	args := []any{int64(0)}
	if !since.IsZero() {
		args[0] = since.UTC().UnixMilli()
	}
	if kind != "" {
		query += " AND source_kind = ?"
		args = append(args, string(kind))
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, &StoreError{Op: "query", Err: err}
	}
	return n, nil
}

// CountByKind returns per-source totals
func (s *ItemStore) CountByKind(ctx context.Context) (map[SourceKind]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT source_kind, COUNT(*) FROM sitrep_items GROUP BY source_kind")
	if err != nil {
		return nil, &StoreError{Op: "query", Err: err}
	}
	defer rows.Close()

	counts := map[SourceKind]int{
		SourceCodeHost:     0,
		SourceRelayNetwork: 0,
	}
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, &StoreError{Op: "query", Err: err}
		}
		counts[SourceKind(kind)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "query", Err: err}
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(r rowScanner) (*PersistedItem, error) {
	var (
		item                            PersistedItem
		kind, meta                      string
		publishedAt, createdAt, updated int64
	)
	if err := r.Scan(&item.ID, &kind, &item.ExternalID, &item.Title, &item.Body, &item.URL,
		&publishedAt, &meta, &createdAt, &updated); err != nil {
		return nil, err
	}

	item.SourceKind = SourceKind(kind)
	item.PublishedAt = time.UnixMilli(publishedAt).UTC()
	item.CreatedAt = time.UnixMilli(createdAt).UTC()
	item.UpdatedAt = time.UnixMilli(updated).UTC()

	if meta != "" {
		if err := json.Unmarshal([]byte(meta), &item.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for %s: %w", item.ExternalID, err)
		}
	}
	return &item, nil
}
