package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/spf13/afero"

	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/hash"
	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/storage"
	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/types"
)

var blobName = regexp.MustCompile(`^(.+)-([0-9a-f]{12})\.json$`)

// Report is the outcome of ValidateTree.
type Report struct {
	Files    int
	Problems []error
}

// Err joins every problem, or returns nil for a clean tree.
func (r *Report) Err() error {
	return errors.Join(r.Problems...)
}

func (r *Report) addf(format string, args ...interface{}) {
	r.Problems = append(r.Problems, fmt.Errorf(format, args...))
}

// ValidateTree checks a generated output directory: every document matches
// its schema, every blob re-hashes to the digest in its name, every manifest
// reference resolves to a blob and the index agrees with the latest version.
func ValidateTree(fs afero.Fs, outputDir string) (*Report, error) {
	r := &Report{}

	var versionsData types.VersionsData
	if !r.load(fs, filepath.Join(outputDir, "versions.json"), KindVersions, &versionsData) {
		return r, nil
	}

	blobs, err := r.checkBlobs(fs, filepath.Join(outputDir, storage.InstrumentationsDir))
	if err != nil {
		return nil, err
	}

	manifests := make(map[string]*types.VersionManifest)
	latest := ""
	for _, info := range versionsData.Versions {
		if info.IsLatest {
			latest = info.Version
		}
		var manifest types.VersionManifest
		path := filepath.Join(outputDir, storage.VersionsDir, info.Version+".json")
		if !r.load(fs, path, KindManifest, &manifest) {
			continue
		}
		manifests[info.Version] = &manifest
		for _, id := range manifest.IDs() {
			ref := manifest.Instrumentations[id]
			digest, ok := blobs[ref.Filename]
			switch {
			case !ok:
				r.addf("%s: %s references missing blob %s", path, id, ref.Filename)
			case digest != ref.Hash:
				r.addf("%s: %s hash %s does not match blob %s", path, id, ref.Hash, ref.Filename)
			}
		}
	}

	var index types.IndexData
	indexPath := filepath.Join(outputDir, "index.json")
	if r.load(fs, indexPath, KindIndex, &index) {
		if index.LatestVersion != latest {
			r.addf("%s: latest_version %q does not match versions.json latest %q", indexPath, index.LatestVersion, latest)
		}
		if m, ok := manifests[index.LatestVersion]; ok {
			for _, entry := range index.Instrumentations {
				if _, found := m.Instrumentations[entry.ID]; !found {
					r.addf("%s: %s is not in version %s", indexPath, entry.ID, index.LatestVersion)
				}
			}
		}
	}
	return r, nil
}

// checkBlobs validates every stored record and returns the digest named by
// each filename.
func (r *Report) checkBlobs(fs afero.Fs, dir string) (map[string]string, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	blobs := make(map[string]string, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		m := blobName.FindStringSubmatch(info.Name())
		if m == nil {
			continue
		}
		path := filepath.Join(dir, info.Name())
		var rec types.Instrumentation
		if !r.load(fs, path, KindInstrumentation, &rec) {
			continue
		}
		blobs[info.Name()] = m[2]

		if rec.ID != m[1] {
			r.addf("%s: id %q does not match filename", path, rec.ID)
		}
		digest, err := hash.Digest(rec.HashView())
		if err != nil {
			r.addf("%s: %v", path, err)
			continue
		}
		if digest != m[2] {
			r.addf("%s: content hashes to %s", path, digest)
		}
	}
	return blobs, nil
}

// load reads, schema-checks and decodes one document, recording problems.
func (r *Report) load(fs afero.Fs, path string, kind Kind, v interface{}) bool {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		r.addf("%s: %v", path, err)
		return false
	}
	r.Files++
	if err := Validate(kind, data); err != nil {
		r.addf("%s: %v", path, err)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		r.addf("%s: %v", path, err)
		return false
	}
	return true
}
