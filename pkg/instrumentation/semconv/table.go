package semconv

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/types"
)

// Table maps semantic-convention metric and attribute names to the display
// name of the convention category that defines them. A loaded table is
// read-only; a nil *Table is valid and classifies nothing.
type Table struct {
	Metrics    map[string]string `json:"metrics"`
	Attributes map[string]string `json:"attributes"`
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		Metrics:    make(map[string]string),
		Attributes: make(map[string]string),
	}
}

// IsConventionAttribute reports whether name is a known convention attribute.
// Matching is exact and case-sensitive.
func (t *Table) IsConventionAttribute(name string) bool {
	if t == nil || t.Attributes == nil {
		return false
	}
	_, ok := t.Attributes[name]
	return ok
}

// IsConventionMetric reports whether name is a known convention metric.
func (t *Table) IsConventionMetric(name string) bool {
	if t == nil || t.Metrics == nil {
		return false
	}
	_, ok := t.Metrics[name]
	return ok
}

// Len returns the number of attribute and metric names.
func (t *Table) Len() (attributes, metrics int) {
	if t == nil {
		return 0, 0
	}
	return len(t.Attributes), len(t.Metrics)
}

// addAttribute records name unless it is already present.
func (t *Table) addAttribute(name, category string) {
	if name == "" {
		return
	}
	if _, exists := t.Attributes[name]; !exists {
		t.Attributes[name] = category
	}
}

// addMetric records name unless it is already present.
func (t *Table) addMetric(name, category string) {
	if name == "" {
		return
	}
	if _, exists := t.Metrics[name]; !exists {
		t.Metrics[name] = category
	}
}

// Save writes the table as JSON.
func (t *Table) Save(fs afero.Fs, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal convention table: %w", err)
	}
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write convention table: %w", err)
	}
	return nil
}

// LoadTable reads a table previously written by Save.
func LoadTable(fs afero.Fs, path string) (*Table, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read convention table: %w", err)
	}
	table := NewTable()
	if err := json.Unmarshal(data, table); err != nil {
		return nil, fmt.Errorf("failed to parse convention table %s: %w", path, err)
	}
	if table.Metrics == nil {
		table.Metrics = make(map[string]string)
	}
	if table.Attributes == nil {
		table.Attributes = make(map[string]string)
	}
	return table, nil
}

// Classify reports whether attributeName follows the semantic conventions
// known to table. With no table it always returns false.
func Classify(table *Table, attributeName string) bool {
	return table.IsConventionAttribute(attributeName)
}

// AnnotateAttribute returns a copy of attr with its semconv flag set.
func AnnotateAttribute(table *Table, attr types.Attribute) types.Attribute {
	flag := Classify(table, attr.Name)
	attr.Semconv = &flag
	return attr
}

// AnnotateMetric returns a copy of metric with every attribute classified.
// A metric without attributes is returned unchanged.
func AnnotateMetric(table *Table, metric types.Metric) types.Metric {
	if len(metric.Attributes) == 0 {
		return metric
	}
	metric.Attributes = annotateAttributes(table, metric.Attributes)
	return metric
}

// AnnotateSpan returns a copy of span with every attribute classified.
// A span without attributes is returned unchanged.
func AnnotateSpan(table *Table, span types.Span) types.Span {
	if len(span.Attributes) == 0 {
		return span
	}
	span.Attributes = annotateAttributes(table, span.Attributes)
	return span
}

// AnnotateTelemetry classifies every metric and span attribute across all
// phases. The input map and its slices are not modified.
func AnnotateTelemetry(table *Table, telemetry types.Telemetry) types.Telemetry {
	if telemetry == nil {
		return nil
	}
	out := make(types.Telemetry, len(telemetry))
	for when, phase := range telemetry {
		annotated := types.TelemetryPhase{
			Metrics: make([]types.Metric, 0, len(phase.Metrics)),
			Spans:   make([]types.Span, 0, len(phase.Spans)),
		}
		for _, m := range phase.Metrics {
			annotated.Metrics = append(annotated.Metrics, AnnotateMetric(table, m))
		}
		for _, s := range phase.Spans {
			annotated.Spans = append(annotated.Spans, AnnotateSpan(table, s))
		}
		out[when] = annotated
	}
	return out
}

func annotateAttributes(table *Table, attrs []types.Attribute) []types.Attribute {
	out := make([]types.Attribute, len(attrs))
	for i, attr := range attrs {
		out[i] = AnnotateAttribute(table, attr)
	}
	return out
}
