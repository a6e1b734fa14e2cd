package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/11bdev/sitrep/internal"
)

// JSONLExporter exports the feed one item per line
type JSONLExporter struct{}

// Export exports items to JSONL format
func (e *JSONLExporter) Export(items []*internal.PersistedItem, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, item := range items {
		obj := map[string]interface{}{
			"source_kind":  item.SourceKind,
			"external_id":  item.ExternalID,
			"title":        item.Title,
			"url":          item.URL,
			"published_at": item.PublishedAt.Format(time.RFC3339),
		}

		if item.Body != "" {
			obj["body"] = item.Body
		}
		if len(item.Metadata) > 0 {
			obj["metadata"] = item.Metadata
		}

		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("failed to encode item %s: %w", item.ExternalID, err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
