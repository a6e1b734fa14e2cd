package export

import (
	"encoding/json"
	"io"

	"github.com/11bdev/sitrep/internal"
)

// JSONExporter exports the feed as one pretty-printed JSON array
type JSONExporter struct{}

// Export exports items to JSON format
func (e *JSONExporter) Export(items []*internal.PersistedItem, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if items == nil {
		items = []*internal.PersistedItem{}
	}
	return enc.Encode(items)
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
