package types

import "sort"

// Instrumentation is one instrumentation library's metadata for one agent
// version, normalized to the current schema. It is the unit of content
// addressing: identical values hash identically regardless of which version
// or id produced them.
type Instrumentation struct {
	ID                      string          `json:"id"`
	DisplayName             string          `json:"display_name"`
	LibraryGroup            string          `json:"library_group"`
	Description             string          `json:"description,omitempty"`
	LibraryLink             string          `json:"library_link,omitempty"`
	SourcePath              string          `json:"source_path,omitempty"`
	MinimumJavaVersion      *int            `json:"minimum_java_version,omitempty"`
	SemanticConventions     []string        `json:"semantic_conventions,omitempty"`
	Features                []string        `json:"features,omitempty"`
	DisabledByDefault       *bool           `json:"disabled_by_default,omitempty"`
	Scope                   *Scope          `json:"scope,omitempty"`
	JavaagentTargetVersions []string        `json:"javaagent_target_versions,omitempty"`
	HasStandaloneLibrary    *bool           `json:"has_standalone_library,omitempty"`
	Configurations          []Configuration `json:"configurations,omitempty"`
	Telemetry               Telemetry       `json:"telemetry,omitempty"`
	MarkdownHash            string          `json:"markdown_hash,omitempty"`
	MarkdownURL             string          `json:"markdown_url,omitempty"`
}

// Scope identifies the instrumentation scope emitted by the library.
type Scope struct {
	Name string `json:"name" yaml:"name"`
}

// Configuration is a single configuration property understood by the
// instrumentation. Default may be a string, bool or number.
type Configuration struct {
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description,omitempty" yaml:"description"`
	Type        string      `json:"type,omitempty" yaml:"type"`
	Default     interface{} `json:"default,omitempty" yaml:"default"`
}

// Telemetry maps a lifecycle phase ("default", or a configuration condition)
// to the signals emitted while in that phase.
type Telemetry map[string]TelemetryPhase

// TelemetryPhase always serializes both lists, empty or not.
type TelemetryPhase struct {
	Metrics []Metric `json:"metrics"`
	Spans   []Span   `json:"spans"`
}

// Metric describes an emitted metric.
type Metric struct {
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description,omitempty" yaml:"description"`
	Type        string      `json:"type,omitempty" yaml:"type"`
	Unit        string      `json:"unit,omitempty" yaml:"unit"`
	Attributes  []Attribute `json:"attributes,omitempty" yaml:"attributes"`
}

// Span describes an emitted span.
type Span struct {
	SpanKind   string      `json:"span_kind" yaml:"span_kind"`
	Attributes []Attribute `json:"attributes,omitempty" yaml:"attributes"`
}

// Attribute is a telemetry attribute. Semconv is set by classification and is
// nil until then.
type Attribute struct {
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	Semconv *bool  `json:"semconv,omitempty" yaml:"semconv,omitempty"`
}

// HasTelemetry reports whether any phase carries at least one metric or span.
func (i *Instrumentation) HasTelemetry() bool {
	for _, phase := range i.Telemetry {
		if len(phase.Metrics) > 0 || len(phase.Spans) > 0 {
			return true
		}
	}
	return false
}

// HashView returns the value that is digested for content addressing.
// Semantic conventions and features are sets, so they are sorted in the
// returned copy; every other list keeps its order. The receiver is not
// modified.
func (i *Instrumentation) HashView() Instrumentation {
	view := *i
	view.SemanticConventions = sortedCopy(i.SemanticConventions)
	view.Features = sortedCopy(i.Features)
	return view
}

func sortedCopy(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}
