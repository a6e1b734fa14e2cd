package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/11bdev/sitrep/internal"
	"gopkg.in/yaml.v3"
)

func TestYAMLExporter_Export(t *testing.T) {
	tests := []struct {
		name    string
		items   []*internal.PersistedItem
		want    []string
		wantErr bool
	}{
		{
			name:  "feed",
			items: testFeed(),
			want: []string{
				"external_id: nostr-ev1",
				"source_kind: relay_network",
				"title: 2 commits to sitrep",
				"platform: nostr",
			},
			wantErr: false,
		},
		{
			name:    "empty feed",
			items:   nil,
			want:    []string{"[]"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			exporter := &YAMLExporter{}

			err := exporter.Export(tt.items, &buf)
			if (err != nil) != tt.wantErr {
				t.Errorf("YAMLExporter.Export() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			output := buf.String()
			// Verify it's valid YAML
			var decoded []map[string]interface{}
			if err := yaml.Unmarshal([]byte(output), &decoded); err != nil {
				t.Errorf("Output is not valid YAML: %v\nOutput: %s", err, output)
				return
			}
			if len(decoded) != len(tt.items) {
				t.Errorf("decoded %d items, want %d", len(decoded), len(tt.items))
			}

			for _, wantStr := range tt.want {
				if !strings.Contains(output, wantStr) {
					t.Errorf("Output should contain %q, got:\n%s", wantStr, output)
				}
			}
		})
	}
}

func TestYAMLExporter_Extension(t *testing.T) {
	exporter := &YAMLExporter{}
	if got := exporter.Extension(); got != "yaml" {
		t.Errorf("YAMLExporter.Extension() = %v, want yaml", got)
	}
}
