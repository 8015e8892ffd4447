package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Output subdirectories.
const (
	VersionsDir         = "versions"
	InstrumentationsDir = "instrumentations"
	MarkdownDir         = "markdown"
)

// EnsureLayout creates the output directory tree.
func EnsureLayout(fs afero.Fs, outputDir string) error {
	for _, dir := range []string{
		outputDir,
		filepath.Join(outputDir, VersionsDir),
		filepath.Join(outputDir, InstrumentationsDir),
		filepath.Join(outputDir, MarkdownDir),
	} {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// MarshalJSON renders v the way every output file is written: two-space
// indentation, no HTML escaping and a trailing newline.
func MarshalJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteJSON atomically writes v as JSON to path.
func WriteJSON(fs afero.Fs, path string, v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	return WriteFileAtomic(fs, path, data, 0o644)
}

// WriteFileAtomic writes content to a temporary file next to path and renames
// it into place, so readers never observe a partial file.
func WriteFileAtomic(fs afero.Fs, path string, content []byte, mode os.FileMode) error {
	parent := filepath.Dir(path)
	base := filepath.Base(path)

	tempFile, err := afero.TempFile(fs, parent, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tempPath := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = fs.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(content); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp file for %s: %w", path, err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := fs.Chmod(tempPath, mode); err != nil {
		return fmt.Errorf("chmod temp file for %s: %w", path, err)
	}
	if err := fs.Rename(tempPath, path); err != nil {
		return fmt.Errorf("rename temp file to %s: %w", path, err)
	}
	cleanup = false
	return nil
}
