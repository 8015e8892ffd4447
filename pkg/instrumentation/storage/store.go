// Package storage persists content-addressed instrumentation blobs and the
// JSON artifacts that reference them.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/hash"
	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/types"
)

// blob is one registered digest. done is closed once the write has finished;
// err holds its outcome.
type blob struct {
	ref  types.Reference
	done chan struct{}
	err  error
}

// ContentStore writes each unique record exactly once per run and hands out
// stable references to it. A store is created per run and is safe for
// concurrent use.
type ContentStore struct {
	fs        afero.Fs
	outputDir string
	baseURL   string

	mu       sync.Mutex
	blobs    map[string]*blob
	records  map[string]types.Instrumentation
	markdown map[string]*blob
	puts     int
}

// NewContentStore returns an empty store writing below outputDir. URLs are
// built from baseURL.
func NewContentStore(fs afero.Fs, outputDir, baseURL string) *ContentStore {
	return &ContentStore{
		fs:        fs,
		outputDir: outputDir,
		baseURL:   baseURL,
		blobs:     make(map[string]*blob),
		records:   make(map[string]types.Instrumentation),
		markdown:  make(map[string]*blob),
	}
}

// Put stores rec and returns its reference. isNew is true when this call
// registered the digest; otherwise the reference of the first record with the
// same content is returned and nothing is written. Callers that hit a digest
// whose write is still in flight wait for it and share its error.
func (s *ContentStore) Put(ctx context.Context, rec types.Instrumentation) (ref types.Reference, isNew bool, err error) {
	view := rec.HashView()
	digest, err := hash.Digest(view)
	if err != nil {
		return types.Reference{}, false, fmt.Errorf("failed to hash %s: %w", rec.ID, err)
	}

	s.mu.Lock()
	s.puts++
	if existing, ok := s.blobs[digest]; ok {
		s.mu.Unlock()
		return existing.ref, false, wait(ctx, existing)
	}

	filename := fmt.Sprintf("%s-%s.json", rec.ID, digest)
	b := &blob{
		ref: types.Reference{
			Hash:         digest,
			URL:          fmt.Sprintf("%s/%s/%s", s.baseURL, InstrumentationsDir, filename),
			Filename:     filename,
			MarkdownHash: rec.MarkdownHash,
		},
		done: make(chan struct{}),
	}
	s.blobs[digest] = b
	s.records[digest] = rec
	s.mu.Unlock()

	b.err = WriteJSON(s.fs, filepath.Join(s.outputDir, InstrumentationsDir, filename), rec)
	close(b.done)
	return b.ref, true, b.err
}

// PutMarkdown stores a long-form document for id. An empty digest is computed
// from content. The returned reference's Hash is the document digest.
func (s *ContentStore) PutMarkdown(ctx context.Context, id, content, digest string) (ref types.Reference, isNew bool, err error) {
	if digest == "" {
		digest = hash.DigestText(content)
	}
	if !hash.IsValid(digest) {
		return types.Reference{}, false, fmt.Errorf("invalid markdown digest %q for %s", digest, id)
	}

	s.mu.Lock()
	if existing, ok := s.markdown[digest]; ok {
		s.mu.Unlock()
		return existing.ref, false, wait(ctx, existing)
	}

	filename := fmt.Sprintf("%s-%s.md", id, digest)
	b := &blob{
		ref: types.Reference{
			Hash:     digest,
			URL:      fmt.Sprintf("%s/%s/%s", s.baseURL, MarkdownDir, filename),
			Filename: filename,
		},
		done: make(chan struct{}),
	}
	s.markdown[digest] = b
	s.mu.Unlock()

	b.err = WriteFileAtomic(s.fs, filepath.Join(s.outputDir, MarkdownDir, filename), []byte(content), 0o644)
	close(b.done)
	return b.ref, true, b.err
}

func wait(ctx context.Context, b *blob) error {
	select {
	case <-b.done:
		return b.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Record returns the record first stored under digest.
func (s *ContentStore) Record(digest string) (types.Instrumentation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[digest]
	return rec, ok
}

// UniqueCount is the number of distinct records registered.
func (s *ContentStore) UniqueCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

// TotalCount is the number of Put calls, hits included.
func (s *ContentStore) TotalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

// MarkdownCount is the number of distinct documents registered.
func (s *ContentStore) MarkdownCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.markdown)
}

// WriteJSON writes v below the store's output directory.
func (s *ContentStore) WriteJSON(rel string, v interface{}) error {
	return WriteJSON(s.fs, filepath.Join(s.outputDir, rel), v)
}
