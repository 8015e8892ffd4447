package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/getlawrence/instrumentation-explorer/internal/logger"
	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/types"
	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/versions"
)

// ErrNoLatestVersion is returned when no processed version is flagged latest.
var ErrNoLatestVersion = errors.New("no latest version found")

// tagKeywords are matched as substrings of an instrumentation's id and
// description.
var tagKeywords = []string{
	"http", "grpc", "kafka", "redis", "mongodb", "sql", "jdbc",
	"spring", "servlet", "netty", "okhttp", "akka", "reactor",
	"client", "server", "database", "messaging", "rpc",
}

// RecordSource resolves a digest to the record stored under it.
type RecordSource interface {
	Record(digest string) (types.Instrumentation, bool)
}

// BuildIndex projects the latest version's manifest into the browse index.
// Entries whose record cannot be resolved are skipped with a warning.
func BuildIndex(manifests []*types.VersionManifest, configs []versions.Version, records RecordSource, log logger.Logger) (*types.IndexData, error) {
	latest := latestManifest(manifests, configs)
	if latest == nil {
		return nil, ErrNoLatestVersion
	}

	index := &types.IndexData{
		LatestVersion:    latest.Version,
		Instrumentations: make([]types.IndexEntry, 0, len(latest.Instrumentations)),
	}
	for _, id := range latest.IDs() {
		ref := latest.Instrumentations[id]
		rec, ok := records.Record(ref.Hash)
		if !ok {
			log.Warnf("No data found for hash %s (%s)", ref.Hash, id)
			continue
		}
		index.Instrumentations = append(index.Instrumentations, types.IndexEntry{
			ID:                  rec.ID,
			DisplayName:         rec.DisplayName,
			LibraryGroup:        rec.LibraryGroup,
			Description:         rec.Description,
			Tags:                Tags(rec),
			SemanticConventions: rec.SemanticConventions,
			Features:            rec.Features,
			HasTelemetry:        rec.HasTelemetry(),
		})
	}
	return index, nil
}

func latestManifest(manifests []*types.VersionManifest, configs []versions.Version) *types.VersionManifest {
	latest := make(map[string]bool, len(configs))
	for _, c := range configs {
		if c.IsLatest {
			latest[c.Version] = true
		}
	}
	for _, m := range manifests {
		if latest[m.Version] {
			return m
		}
	}
	return nil
}

// Tags derives search tags for rec: its library group, every keyword found
// in its id or description, and its semantic conventions lower-cased.
// Duplicates are dropped; first occurrence fixes the order.
func Tags(rec types.Instrumentation) []string {
	seen := make(map[string]bool)
	var tags []string
	add := func(tag string) {
		if tag == "" || seen[tag] {
			return
		}
		seen[tag] = true
		tags = append(tags, tag)
	}

	add(rec.LibraryGroup)

	id := strings.ToLower(rec.ID)
	description := strings.ToLower(rec.Description)
	for _, keyword := range tagKeywords {
		if strings.Contains(id, keyword) || strings.Contains(description, keyword) {
			add(keyword)
		}
	}

	for _, convention := range rec.SemanticConventions {
		add(strings.ToLower(convention))
	}
	return tags
}

// BuildVersionsList lists configs in order, pointing each at its manifest.
func BuildVersionsList(configs []versions.Version, baseURL string) types.VersionsData {
	data := types.VersionsData{Versions: make([]types.VersionInfo, 0, len(configs))}
	for _, c := range configs {
		data.Versions = append(data.Versions, types.VersionInfo{
			Version:     c.Version,
			ReleaseDate: c.ReleaseDate,
			ManifestURL: ManifestURL(baseURL, c.Version),
			IsLatest:    c.IsLatest,
		})
	}
	return data
}

// ManifestURL is the public URL of a version manifest.
func ManifestURL(baseURL, version string) string {
	return fmt.Sprintf("%s/versions/%s.json", baseURL, version)
}
