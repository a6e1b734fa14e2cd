package internal

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/11bdev/sitrep/testutil"
)

func TestOpenDatabase(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		wantErr bool
	}{
		{
			name: "new database in existing dir",
			setup: func(t *testing.T) string {
				tmpDir := testutil.CreateTempDir(t)
				return filepath.Join(tmpDir, "sitrep.db")
			},
			wantErr: false,
		},
		{
			name: "creates missing parent directories",
			setup: func(t *testing.T) string {
				tmpDir := testutil.CreateTempDir(t)
				return filepath.Join(tmpDir, "nested", "deeper", "sitrep.db")
			},
			wantErr: false,
		},
		{
			name:    "in-memory database",
			setup:   func(t *testing.T) string { return ":memory:" },
			wantErr: false,
		},
		{
			name: "parent is a file",
			setup: func(t *testing.T) string {
				tmpDir := testutil.CreateTempDir(t)
				blocker := filepath.Join(tmpDir, "blocker")
				testutil.WriteFixtureFile(t, blocker, []byte("x"))
				return filepath.Join(blocker, "sitrep.db")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dbPath := tt.setup(t)
			db, err := OpenDatabase(dbPath)
			if (err != nil) != tt.wantErr {
				t.Errorf("OpenDatabase() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			defer db.Close()

			if got := testutil.CountRows(t, db, "sitrep_items"); got != 0 {
				t.Errorf("fresh database has %d rows, want 0", got)
			}
		})
	}
}

func TestOpenDatabase_Reopen(t *testing.T) {
	tmpDir := testutil.CreateTempDir(t)
	dbPath := filepath.Join(tmpDir, "sitrep.db")

	db, err := OpenDatabase(dbPath)
	if err != nil {
		t.Fatalf("OpenDatabase() error = %v", err)
	}
	store := NewItemStore(db)
	res := store.UpsertEach(t.Context(), []NormalizedItem{CreateTestItem("github-push-1", store.now())})
	if res.Created != 1 {
		t.Fatalf("Created = %d, want 1", res.Created)
	}
	db.Close()

	// migrations must be idempotent and keep existing rows
	db, err = OpenDatabase(dbPath)
	if err != nil {
		t.Fatalf("second OpenDatabase() error = %v", err)
	}
	defer db.Close()
	if got := testutil.CountRows(t, db, "sitrep_items"); got != 1 {
		t.Errorf("rows after reopen = %d, want 1", got)
	}
}

func TestOpenDatabaseReadOnly(t *testing.T) {
	tmpDir := testutil.CreateTempDir(t)
	dbPath := filepath.Join(tmpDir, "sitrep.db")

	db, err := OpenDatabase(dbPath)
	if err != nil {
		t.Fatalf("OpenDatabase() error = %v", err)
	}
	db.Close()

	ro, err := OpenDatabaseReadOnly(dbPath)
	if err != nil {
		t.Fatalf("OpenDatabaseReadOnly() error = %v", err)
	}
	defer ro.Close()

	if _, err := ro.Exec("DELETE FROM sitrep_items"); err == nil {
		t.Error("write through read-only handle should fail")
	}
}

func TestMigrate_EnforcesConstraints(t *testing.T) {
	db := testutil.CreateInMemoryDB(t)
	defer db.Close()

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	insert := `INSERT INTO sitrep_items (source_kind, external_id, title, body, url, published_at, metadata, created_at, updated_at)
		VALUES (?, ?, 'title', '', 'https://example.com', 0, '{}', 0, 0)`

	if _, err := db.Exec(insert, "code_host", "dup"); err != nil {
		t.Fatalf("first insert error = %v", err)
	}
	if _, err := db.Exec(insert, "relay_network", "dup"); err == nil {
		t.Error("duplicate external_id should violate the unique index")
	}
	if _, err := db.Exec(insert, "rss", "other"); err == nil {
		t.Error("unknown source_kind should violate the check constraint")
	}
}

func TestMigrate_ClosedDB(t *testing.T) {
	db := testutil.CreateInMemoryDB(t)
	db.Close()

	err := Migrate(db)
	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("Migrate() error = %v, want *StoreError", err)
	}
	if storeErr.Op != "migrate" {
		t.Errorf("StoreError.Op = %q, want migrate", storeErr.Op)
	}
}
