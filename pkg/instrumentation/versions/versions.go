// Package versions discovers the agent versions available as
// instrumentation-list files and resolves which of them a run processes.
package versions

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/afero"
)

var (
	// ErrNoVersions is returned when a selection resolves to nothing.
	ErrNoVersions = errors.New("no versions found")
	// ErrInvalidSelection is returned for a malformed selection.
	ErrInvalidSelection = errors.New("invalid version selection")
)

// DefaultPreviewVersions are published ahead of release and never treated
// as the latest version.
var DefaultPreviewVersions = []string{"3.0.0"}

var listFile = regexp.MustCompile(`^instrumentation-list-(.+)\.yaml$`)

// Version is one agent version and the file describing it.
type Version struct {
	Version     string
	SourcePath  string
	ReleaseDate string
	IsLatest    bool
	Preview     bool

	semver *semver.Version
}

// Mode selects which detected versions a run processes.
type Mode string

const (
	ModeLatest   Mode = "latest"
	ModeRecent   Mode = "recent"
	ModeAll      Mode = "all"
	ModeVersions Mode = "versions"
)

// Selection describes the versions to process.
type Selection struct {
	Mode           Mode
	Count          int
	Versions       []string
	IncludePreview bool
}

// Validate checks the selection for internal consistency.
func (s Selection) Validate() error {
	switch s.Mode {
	case ModeLatest, ModeAll:
		return nil
	case ModeRecent:
		if s.Count < 1 {
			return fmt.Errorf("%w: recent count must be at least 1, got %d", ErrInvalidSelection, s.Count)
		}
		return nil
	case ModeVersions:
		if len(s.Versions) == 0 {
			return fmt.Errorf("%w: no versions specified", ErrInvalidSelection)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidSelection, s.Mode)
	}
}

// Normalize pads a dotted version to three components: 2.20 becomes 2.20.0.
func Normalize(version string) string {
	parts := strings.Split(version, ".")
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	return strings.Join(parts, ".")
}

// Detector scans a source directory for instrumentation-list files.
type Detector struct {
	fs      afero.Fs
	dir     string
	preview map[string]bool
	now     func() time.Time
}

// NewDetector returns a detector for dir. Versions listed in preview sort
// after every stable version and are never flagged latest.
func NewDetector(fs afero.Fs, dir string, preview []string) *Detector {
	d := &Detector{fs: fs, dir: dir, preview: make(map[string]bool), now: time.Now}
	for _, v := range preview {
		d.preview[Normalize(v)] = true
	}
	return d
}

// Detect returns every version found, oldest first, with the newest stable
// version flagged latest. File names whose version does not parse are
// ignored.
func (d *Detector) Detect() ([]Version, error) {
	infos, err := afero.ReadDir(d.fs, d.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read source directory %s: %w", d.dir, err)
	}

	releaseDate := d.now().Format("2006-01-02")
	var found []Version
	seen := make(map[string]int)
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		m := listFile.FindStringSubmatch(info.Name())
		if m == nil {
			continue
		}
		normalized := Normalize(m[1])
		sv, err := semver.StrictNewVersion(normalized)
		if err != nil {
			continue
		}
		v := Version{
			Version:     normalized,
			SourcePath:  filepath.Join(d.dir, info.Name()),
			ReleaseDate: releaseDate,
			Preview:     d.preview[normalized],
			semver:      sv,
		}
		// 2.20 and 2.20.0 name the same version; the fully spelled file wins
		if i, dup := seen[normalized]; dup {
			if m[1] == normalized {
				found[i] = v
			}
			continue
		}
		seen[normalized] = len(found)
		found = append(found, v)
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].Preview != found[j].Preview {
			return !found[i].Preview
		}
		return found[i].semver.LessThan(found[j].semver)
	})

	for i := len(found) - 1; i >= 0; i-- {
		if !found[i].Preview {
			found[i].IsLatest = true
			break
		}
	}
	return found, nil
}

// Select detects versions and narrows them according to sel.
func (d *Detector) Select(sel Selection) ([]Version, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	all, err := d.Detect()
	if err != nil {
		return nil, err
	}

	var selected []Version
	switch sel.Mode {
	case ModeLatest:
		for _, v := range all {
			if v.IsLatest {
				selected = []Version{v}
			}
		}
	case ModeRecent:
		candidates := filterPreview(all, sel.IncludePreview)
		if len(candidates) > sel.Count {
			candidates = candidates[len(candidates)-sel.Count:]
		}
		selected = candidates
	case ModeAll:
		selected = filterPreview(all, sel.IncludePreview)
	case ModeVersions:
		wanted := make(map[string]bool, len(sel.Versions))
		for _, v := range sel.Versions {
			wanted[Normalize(v)] = true
		}
		for _, v := range all {
			if wanted[v.Version] {
				selected = append(selected, v)
			}
		}
		if len(selected) > 0 && !anyLatest(selected) {
			selected[len(selected)-1].IsLatest = true
		}
		if len(selected) == 0 {
			return nil, fmt.Errorf("%w: none of %s present in %s", ErrNoVersions, strings.Join(sel.Versions, ", "), d.dir)
		}
	}

	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: expected instrumentation-list-*.yaml files in %s", ErrNoVersions, d.dir)
	}
	return selected, nil
}

func filterPreview(all []Version, includePreview bool) []Version {
	out := make([]Version, 0, len(all))
	for _, v := range all {
		if v.Preview && !includePreview {
			continue
		}
		out = append(out, v)
	}
	return out
}

func anyLatest(vs []Version) bool {
	for _, v := range vs {
		if v.IsLatest {
			return true
		}
	}
	return false
}
