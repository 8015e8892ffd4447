// Package docs discovers long-form library documents stored next to the
// instrumentation lists as {id}-{hash}.md files.
package docs

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/go-enry/go-enry/v2"
	"github.com/spf13/afero"
)

// docName splits {id}-{hash}{ext}. The extension decides whether the file
// is a document at all.
var docName = regexp.MustCompile(`^(.+)-([0-9a-f]{12})(\.[A-Za-z0-9]+)$`)

// Document is one discovered markdown file.
type Document struct {
	ID   string
	Hash string
	Path string
}

// Finder indexes a shared documents directory by instrumentation id.
type Finder struct {
	fs    afero.Fs
	byID  map[string]Document
	count int
}

// NewFinder scans dir once. A missing directory yields an empty finder;
// any other read failure is returned.
func NewFinder(fs afero.Fs, dir string) (*Finder, error) {
	f := &Finder{fs: fs, byID: make(map[string]Document)}
	if dir == "" {
		return f, nil
	}

	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, fmt.Errorf("failed to read docs directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		names = append(names, info.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		m := docName.FindStringSubmatch(name)
		if m == nil || !isMarkdown(m[3]) {
			continue
		}
		f.count++
		// first match in name order wins
		if _, seen := f.byID[m[1]]; seen {
			continue
		}
		f.byID[m[1]] = Document{ID: m[1], Hash: m[2], Path: filepath.Join(dir, name)}
	}
	return f, nil
}

// isMarkdown reports whether linguist maps ext to Markdown. This accepts
// .markdown, .mdown, .mkd and the other aliases next to .md.
func isMarkdown(ext string) bool {
	// .md is ambiguous in linguist, so accept Markdown among the candidates
	for _, lang := range enry.GetLanguagesByExtension("doc"+ext, nil, nil) {
		if strings.EqualFold(lang, "Markdown") {
			return true
		}
	}
	return false
}

// Find returns the document for id, if any.
func (f *Finder) Find(id string) (Document, bool) {
	doc, ok := f.byID[id]
	return doc, ok
}

// Read loads a document's content.
func (f *Finder) Read(doc Document) (string, error) {
	data, err := afero.ReadFile(f.fs, doc.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", doc.Path, err)
	}
	return string(data), nil
}

// Len is the number of well-named documents seen, including shadowed ones.
func (f *Finder) Len() int {
	return f.count
}
