package parser

import (
	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/types"
)

// defaultPhase names telemetry recorded without an explicit condition.
const defaultPhase = "default"

// Transform normalizes a raw library entry into the canonical record.
// Required fields are always copied; optional fields only when present, so
// that absence never shows up as an explicit empty value in the hash input.
func Transform(lib types.LibraryEntry, libraryGroup string) types.Instrumentation {
	rec := types.Instrumentation{
		ID:           lib.Name,
		DisplayName:  lib.DisplayName,
		LibraryGroup: libraryGroup,
	}

	rec.Description = lib.Description
	rec.LibraryLink = lib.LibraryLink
	rec.SourcePath = lib.SourcePath
	rec.MinimumJavaVersion = lib.MinimumJavaVersion
	rec.DisabledByDefault = lib.DisabledByDefault

	if len(lib.SemanticConventions) > 0 {
		rec.SemanticConventions = lib.SemanticConventions
	}
	if len(lib.Features) > 0 {
		rec.Features = lib.Features
	}
	if lib.Scope != nil {
		scope := *lib.Scope
		rec.Scope = &scope
	}

	rec.JavaagentTargetVersions, rec.HasStandaloneLibrary = resolveTargets(lib)

	if len(lib.Configurations) > 0 {
		rec.Configurations = lib.Configurations
	}
	if len(lib.Telemetry) > 0 {
		rec.Telemetry = transformTelemetry(lib.Telemetry)
	}

	return rec
}

// targetVersions is the tagged union of the two historical target-version
// shapes. Exactly one variant is chosen per entry.
type targetVersions interface {
	normalize() (javaagent []string, hasStandaloneLibrary *bool)
}

// schemaV1Targets is the format 0.1 shape: target_versions.{javaagent,library}.
type schemaV1Targets struct {
	legacy types.LegacyTargetVersions
}

func (t schemaV1Targets) normalize() ([]string, *bool) {
	var javaagent []string
	if len(t.legacy.Javaagent) > 0 {
		javaagent = t.legacy.Javaagent
	}
	if t.legacy.Library == nil {
		return javaagent, nil
	}
	standalone := len(t.legacy.Library) > 0
	return javaagent, &standalone
}

// schemaV2Targets is the format 0.2 shape: javaagent_target_versions plus
// has_standalone_library.
type schemaV2Targets struct {
	javaagent            []string
	hasStandaloneLibrary *bool
}

func (t schemaV2Targets) normalize() ([]string, *bool) {
	var javaagent []string
	if len(t.javaagent) > 0 {
		javaagent = t.javaagent
	}
	return javaagent, t.hasStandaloneLibrary
}

// targetVariants lists the shapes present on an entry, format 0.2 first.
func targetVariants(lib types.LibraryEntry) []targetVersions {
	var variants []targetVersions
	if lib.JavaagentTargetVersions != nil || lib.HasStandaloneLibrary != nil {
		variants = append(variants, schemaV2Targets{javaagent: lib.JavaagentTargetVersions, hasStandaloneLibrary: lib.HasStandaloneLibrary})
	}
	if lib.TargetVersions != nil {
		variants = append(variants, schemaV1Targets{legacy: *lib.TargetVersions})
	}
	return variants
}

// resolveTargets fills each field from the first variant that provides it,
// so a format 0.2 field never hides a legacy value for the other field.
func resolveTargets(lib types.LibraryEntry) (javaagent []string, hasStandaloneLibrary *bool) {
	for _, variant := range targetVariants(lib) {
		j, standalone := variant.normalize()
		if javaagent == nil {
			javaagent = j
		}
		if hasStandaloneLibrary == nil {
			hasStandaloneLibrary = standalone
		}
	}
	return javaagent, hasStandaloneLibrary
}

// transformTelemetry turns the source list into a phase-keyed map. Every
// listed phase is recorded, with empty lists when it carries no signals.
func transformTelemetry(entries []types.TelemetryYAML) types.Telemetry {
	telemetry := make(types.Telemetry, len(entries))
	for _, entry := range entries {
		when := entry.When
		if when == "" {
			when = defaultPhase
		}
		phase := types.TelemetryPhase{
			Metrics: entry.Metrics,
			Spans:   entry.Spans,
		}
		if phase.Metrics == nil {
			phase.Metrics = []types.Metric{}
		}
		if phase.Spans == nil {
			phase.Spans = []types.Span{}
		}
		telemetry[when] = phase
	}
	return telemetry
}
