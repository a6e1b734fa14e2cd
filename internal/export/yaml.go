package export

import (
	"io"

	"github.com/11bdev/sitrep/internal"
	"gopkg.in/yaml.v3"
)

// YAMLExporter exports the feed as a YAML list
type YAMLExporter struct{}

// Export exports items to YAML format
func (e *YAMLExporter) Export(items []*internal.PersistedItem, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()

	if items == nil {
		items = []*internal.PersistedItem{}
	}
	return enc.Encode(items)
}

// Extension returns the file extension for this format
func (e *YAMLExporter) Extension() string {
	return "yaml"
}
