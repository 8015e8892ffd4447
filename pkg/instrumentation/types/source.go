package types

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// InstrumentationList is the top-level shape of an instrumentation-list YAML
// file as published by the agent build.
type InstrumentationList struct {
	FileFormat string        `yaml:"file_format"`
	Libraries  LibraryGroups `yaml:"libraries"`
}

// LibraryGroup is one entry of the libraries mapping. Groups are kept in the
// order they appear in the source file.
type LibraryGroup struct {
	Name    string
	Entries []LibraryEntry
}

// LibraryGroups decodes the libraries mapping while preserving source order.
type LibraryGroups []LibraryGroup

// UnmarshalYAML implements yaml.Unmarshaler.
func (g *LibraryGroups) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: libraries must be a mapping of group name to entries", value.Line)
	}

	groups := make(LibraryGroups, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		keyNode, entriesNode := value.Content[i], value.Content[i+1]

		var entries []LibraryEntry
		if err := entriesNode.Decode(&entries); err != nil {
			return fmt.Errorf("group %q: %w", keyNode.Value, err)
		}
		groups = append(groups, LibraryGroup{Name: keyNode.Value, Entries: entries})
	}

	*g = groups
	return nil
}

// Count returns the number of entries across all groups.
func (g LibraryGroups) Count() int {
	n := 0
	for _, group := range g {
		n += len(group.Entries)
	}
	return n
}

// LibraryEntry is a raw library record. It carries the fields of both
// historical file formats; the parser resolves them into one shape.
type LibraryEntry struct {
	Name                string          `yaml:"name"`
	DisplayName         string          `yaml:"display_name"`
	Description         string          `yaml:"description"`
	LibraryLink         string          `yaml:"library_link"`
	SourcePath          string          `yaml:"source_path"`
	MinimumJavaVersion  *int            `yaml:"minimum_java_version"`
	SemanticConventions []string        `yaml:"semantic_conventions"`
	Features            []string        `yaml:"features"`
	DisabledByDefault   *bool           `yaml:"disabled_by_default"`
	Scope               *Scope          `yaml:"scope"`
	Configurations      []Configuration `yaml:"configurations"`
	Telemetry           []TelemetryYAML `yaml:"telemetry"`

	// Format 0.1
	TargetVersions *LegacyTargetVersions `yaml:"target_versions"`

	// Format 0.2
	JavaagentTargetVersions []string `yaml:"javaagent_target_versions"`
	HasStandaloneLibrary    *bool    `yaml:"has_standalone_library"`
}

// LegacyTargetVersions is the format 0.1 target version block.
type LegacyTargetVersions struct {
	Javaagent []string `yaml:"javaagent"`
	Library   []string `yaml:"library"`
}

// TelemetryYAML is one element of the telemetry list in the source file.
type TelemetryYAML struct {
	When    string   `yaml:"when"`
	Metrics []Metric `yaml:"metrics"`
	Spans   []Span   `yaml:"spans"`
}
