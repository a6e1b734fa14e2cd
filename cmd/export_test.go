package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/11bdev/sitrep/internal"
)

func TestExportCommand(t *testing.T) {
	now := time.Now()
	path := tempDBPath(t)
	seedDB(t, path,
		internal.CreateTestItem("github-push-1", now.Add(-time.Hour)),
		internal.CreateTestItem("github-push-2", now.Add(-2*time.Hour)),
		internal.CreateTestRelayItem("ev1", now.Add(-3*time.Hour)),
	)

	tests := []struct {
		name      string
		args      []string
		wantErr   bool
		wantLines int
	}{
		{
			name:    "invalid format",
			args:    []string{"export", "--db", path, "--format", "invalid"},
			wantErr: true,
		},
		{
			name:    "invalid source",
			args:    []string{"export", "--db", path, "--source", "rss"},
			wantErr: true,
		},
		{
			name:      "all items",
			args:      []string{"export", "--db", path},
			wantLines: 3,
		},
		{
			name:      "github only",
			args:      []string{"export", "--db", path, "--source", "github"},
			wantLines: 2,
		},
		{
			name:      "limit",
			args:      []string{"export", "--db", path, "--limit", "1"},
			wantLines: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := executeCommand(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("export error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			lines := strings.Split(strings.TrimSpace(out), "\n")
			if len(lines) != tt.wantLines {
				t.Fatalf("exported %d lines, want %d:\n%s", len(lines), tt.wantLines, out)
			}
			for i, line := range lines {
				var obj map[string]any
				if err := json.Unmarshal([]byte(line), &obj); err != nil {
					t.Errorf("line %d is not JSON: %v", i+1, err)
				}
			}
		})
	}
}

func TestExportCommand_OutputFile(t *testing.T) {
	path := tempDBPath(t)
	seedDB(t, path, internal.CreateTestRelayItem("ev1", time.Now().Add(-time.Hour)))

	t.Run("directory target", func(t *testing.T) {
		dir := t.TempDir()
		out, err := executeCommand(t, "export", "--db", path, "--format", "md", "--output", dir)
		if err != nil {
			t.Fatalf("export error = %v", err)
		}

		want := filepath.Join(dir, "sitrep-"+time.Now().Format("2006-01-02")+".md")
		data, err := os.ReadFile(want)
		if err != nil {
			t.Fatalf("expected export at %s: %v", want, err)
		}
		if !strings.HasPrefix(string(data), "# Sitrep") {
			t.Errorf("markdown export = %q", data)
		}
		if !strings.Contains(out, "Exported 1 item") {
			t.Errorf("output = %q", out)
		}
	})

	t.Run("file target in new directory", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "nested", "feed.yaml")
		if _, err := executeCommand(t, "export", "--db", path, "-f", "yaml", "-o", target); err != nil {
			t.Fatalf("export error = %v", err)
		}
		data, err := os.ReadFile(target)
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if !strings.Contains(string(data), "external_id: nostr-ev1") {
			t.Errorf("yaml export = %s", data)
		}
	})
}

func TestExportFilePath(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{name: "existing directory", target: dir, want: filepath.Join(dir, "sitrep-2025-06-15.json")},
		{name: "new file", target: filepath.Join(dir, "out.json"), want: filepath.Join(dir, "out.json")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := exportFilePath(tt.target, "json", now)
			if err != nil {
				t.Fatalf("exportFilePath() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("exportFilePath() = %q, want %q", got, tt.want)
			}
		})
	}
}
