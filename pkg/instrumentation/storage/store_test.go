package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/hash"
	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/types"
)

func newTestStore(t *testing.T) (*ContentStore, afero.Fs) {
	fs := afero.NewMemMapFs()
	require.NoError(t, EnsureLayout(fs, "out"))
	return NewContentStore(fs, "out", "/data"), fs
}

func listBlobs(t *testing.T, fs afero.Fs, dir string) []string {
	infos, err := afero.ReadDir(fs, filepath.Join("out", dir))
	require.NoError(t, err)
	var names []string
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names
}

func TestPutWritesOnce(t *testing.T) {
	store, fs := newTestStore(t)
	ctx := context.Background()
	rec := types.Instrumentation{ID: "kafka-clients-2.6", DisplayName: "Kafka Clients", LibraryGroup: "kafka"}

	ref, isNew, err := store.Put(ctx, rec)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.True(t, hash.IsValid(ref.Hash))
	assert.Equal(t, "kafka-clients-2.6-"+ref.Hash+".json", ref.Filename)
	assert.Equal(t, "/data/instrumentations/"+ref.Filename, ref.URL)

	again, isNew, err := store.Put(ctx, rec)
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, ref, again)

	assert.Equal(t, []string{ref.Filename}, listBlobs(t, fs, InstrumentationsDir))
	assert.Equal(t, 1, store.UniqueCount())
	assert.Equal(t, 2, store.TotalCount())

	data, err := afero.ReadFile(fs, filepath.Join("out", InstrumentationsDir, ref.Filename))
	require.NoError(t, err)
	var decoded types.Instrumentation
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, rec, decoded)

	cached, ok := store.Record(ref.Hash)
	require.True(t, ok)
	assert.Equal(t, rec, cached)
}

func TestPutKeepsFirstRecord(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	// set order is ignored by the digest
	first := types.Instrumentation{ID: "a", DisplayName: "A", LibraryGroup: "g", Features: []string{"X", "Y"}}
	second := first
	second.Features = []string{"Y", "X"}

	ref1, _, err := store.Put(ctx, first)
	require.NoError(t, err)
	ref2, isNew, err := store.Put(ctx, second)
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, ref1.Filename, ref2.Filename)

	rec, _ := store.Record(ref1.Hash)
	assert.Equal(t, []string{"X", "Y"}, rec.Features)
}

func TestPutConcurrent(t *testing.T) {
	store, fs := newTestStore(t)
	ctx := context.Background()
	rec := types.Instrumentation{ID: "x", DisplayName: "A", LibraryGroup: "g"}

	var wg sync.WaitGroup
	var mu sync.Mutex
	newCount := 0
	refs := make([]types.Reference, 32)
	for i := range refs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ref, isNew, err := store.Put(ctx, rec)
			assert.NoError(t, err)
			refs[i] = ref
			if isNew {
				mu.Lock()
				newCount++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, newCount)
	for _, ref := range refs {
		assert.Equal(t, refs[0], ref)
	}
	assert.Len(t, listBlobs(t, fs, InstrumentationsDir), 1)
}

func TestPutPropagatesWriteFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, EnsureLayout(fs, "out"))
	store := NewContentStore(afero.NewReadOnlyFs(fs), "out", "/data")
	rec := types.Instrumentation{ID: "x", DisplayName: "A", LibraryGroup: "g"}

	_, isNew, err := store.Put(context.Background(), rec)
	assert.Error(t, err)
	assert.True(t, isNew)

	// later callers see the same failure instead of a dangling reference
	_, isNew, err = store.Put(context.Background(), rec)
	assert.Error(t, err)
	assert.False(t, isNew)
}

func TestPutMarkdown(t *testing.T) {
	store, fs := newTestStore(t)
	ctx := context.Background()

	ref, isNew, err := store.PutMarkdown(ctx, "jdbc", "# JDBC", "")
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, hash.DigestText("# JDBC"), ref.Hash)
	assert.Equal(t, "jdbc-"+ref.Hash+".md", ref.Filename)
	assert.Equal(t, "/data/markdown/"+ref.Filename, ref.URL)

	_, isNew, err = store.PutMarkdown(ctx, "jdbc", "# JDBC", ref.Hash)
	require.NoError(t, err)
	assert.False(t, isNew)

	supplied, _, err := store.PutMarkdown(ctx, "kafka", "# Kafka", "0123456789ab")
	require.NoError(t, err)
	assert.Equal(t, "kafka-0123456789ab.md", supplied.Filename)

	_, _, err = store.PutMarkdown(ctx, "kafka", "# Kafka", "NOTAHASH")
	assert.Error(t, err)

	content, err := afero.ReadFile(fs, filepath.Join("out", MarkdownDir, ref.Filename))
	require.NoError(t, err)
	assert.Equal(t, "# JDBC", string(content))
	assert.Equal(t, 2, store.MarkdownCount())
}

func TestWriteJSON(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("out", 0o755))

	require.NoError(t, WriteJSON(fs, "out/index.json", map[string]string{"url": "/data/a&b"}))

	data, err := afero.ReadFile(fs, "out/index.json")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"url\": \"/data/a&b\"\n}\n", string(data))

	infos, err := afero.ReadDir(fs, "out")
	require.NoError(t, err)
	assert.Len(t, infos, 1, "temp file must be renamed away")
}
