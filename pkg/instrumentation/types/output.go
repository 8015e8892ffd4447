package types

import "sort"

// Reference resolves an instrumentation id within one version to a stored,
// deduplicated blob.
type Reference struct {
	Hash         string `json:"hash"`
	URL          string `json:"url"`
	Filename     string `json:"filename"`
	MarkdownHash string `json:"markdown_hash,omitempty"`
}

// VersionManifest maps every instrumentation id of one agent version to its
// content reference.
type VersionManifest struct {
	Version          string               `json:"version"`
	ReleaseDate      string               `json:"release_date,omitempty"`
	AgentVersion     string               `json:"agent_version"`
	Instrumentations map[string]Reference `json:"instrumentations"`
	Metadata         ManifestMetadata     `json:"metadata"`

	order []string
}

// ManifestMetadata carries per-version counters. ChangedFromPrevious is nil
// for the first version of a run.
type ManifestMetadata struct {
	TotalCount          int  `json:"total_count"`
	ChangedFromPrevious *int `json:"changed_from_previous,omitempty"`
}

// NewVersionManifest returns an empty manifest for version.
func NewVersionManifest(version, releaseDate string) *VersionManifest {
	return &VersionManifest{
		Version:          version,
		ReleaseDate:      releaseDate,
		AgentVersion:     version,
		Instrumentations: make(map[string]Reference),
	}
}

// Add records ref under id. Insertion order is remembered for IDs.
func (m *VersionManifest) Add(id string, ref Reference) {
	if m.Instrumentations == nil {
		m.Instrumentations = make(map[string]Reference)
	}
	if _, exists := m.Instrumentations[id]; !exists {
		m.order = append(m.order, id)
	}
	m.Instrumentations[id] = ref
}

// IDs returns the manifest ids in insertion order. Manifests decoded from
// JSON have no insertion order and return their ids sorted.
func (m *VersionManifest) IDs() []string {
	if len(m.order) == len(m.Instrumentations) {
		out := make([]string, len(m.order))
		copy(out, m.order)
		return out
	}
	ids := make([]string, 0, len(m.Instrumentations))
	for id := range m.Instrumentations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IndexData is the lightweight browse/search index built from the latest
// version.
type IndexData struct {
	LatestVersion    string       `json:"latest_version"`
	Instrumentations []IndexEntry `json:"instrumentations"`
}

// IndexEntry is the projection of one instrumentation used by the index.
type IndexEntry struct {
	ID                  string   `json:"id"`
	DisplayName         string   `json:"display_name"`
	LibraryGroup        string   `json:"library_group"`
	Description         string   `json:"description,omitempty"`
	Tags                []string `json:"tags,omitempty"`
	SemanticConventions []string `json:"semantic_conventions,omitempty"`
	Features            []string `json:"features,omitempty"`
	HasTelemetry        bool     `json:"has_telemetry"`
}

// VersionsData lists every generated version.
type VersionsData struct {
	Versions []VersionInfo `json:"versions"`
}

// VersionInfo points at one version manifest.
type VersionInfo struct {
	Version     string `json:"version"`
	ReleaseDate string `json:"release_date,omitempty"`
	ManifestURL string `json:"manifest_url"`
	IsLatest    bool   `json:"is_latest"`
}
