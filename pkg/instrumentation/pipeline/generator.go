// Package pipeline turns instrumentation-list files into the content-addressed
// data set: deduplicated records, per-version manifests, the browse index and
// the versions list.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/getlawrence/instrumentation-explorer/internal/logger"
	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/docs"
	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/parser"
	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/semconv"
	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/storage"
	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/types"
	"github.com/getlawrence/instrumentation-explorer/pkg/instrumentation/versions"
)

const (
	// DefaultBaseURL prefixes every generated link.
	DefaultBaseURL = "/data"
	defaultWorkers = 8

	IndexFile    = "index.json"
	VersionsFile = "versions.json"
)

// Options configures a Generator.
type Options struct {
	Fs        afero.Fs
	Versions  []versions.Version
	OutputDir string
	BaseURL   string
	// Table classifies telemetry attributes. Nil means nothing is a
	// convention.
	Table   *semconv.Table
	Docs    *docs.Finder
	Workers int
	Logger  logger.Logger
	Metrics *Metrics
}

// Generator runs one generation. It owns the content store for the run and
// must not be reused.
type Generator struct {
	opts      Options
	store     *storage.ContentStore
	log       logger.Logger
	manifests []*types.VersionManifest

	conventionMetrics int
}

// NewGenerator validates opts and prepares a fresh content store.
func NewGenerator(opts Options) (*Generator, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.OutputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = logger.NopLogger{}
	}
	if len(opts.Versions) == 0 {
		return nil, versions.ErrNoVersions
	}

	return &Generator{
		opts:  opts,
		store: storage.NewContentStore(opts.Fs, opts.OutputDir, opts.BaseURL),
		log:   opts.Logger,
	}, nil
}

// Generate processes every configured version in order, then writes the
// index and versions list. Any error aborts the run.
func (g *Generator) Generate(ctx context.Context) error {
	start := time.Now()
	g.log.Log("Starting data generation...")

	if err := storage.EnsureLayout(g.opts.Fs, g.opts.OutputDir); err != nil {
		return err
	}
	if g.opts.Table == nil {
		g.log.Warnf("Semantic convention table not loaded; no attribute will be classified as a convention")
	}

	for _, v := range g.opts.Versions {
		g.log.Logf("Processing version %s...", v.Version)
		if _, err := g.ProcessVersion(ctx, v); err != nil {
			return fmt.Errorf("version %s: %w", v.Version, err)
		}
	}

	g.log.Log("Generating index.json...")
	index, err := BuildIndex(g.manifests, g.opts.Versions, g.store, g.log)
	if err != nil {
		return err
	}
	if err := g.store.WriteJSON(IndexFile, index); err != nil {
		return err
	}

	g.log.Log("Generating versions.json...")
	if err := g.store.WriteJSON(VersionsFile, BuildVersionsList(g.opts.Versions, g.opts.BaseURL)); err != nil {
		return err
	}

	stats := g.Stats()
	g.opts.Metrics.observeRun(stats, time.Since(start))
	g.log.Logf("Generation complete! Output in: %s", g.opts.OutputDir)
	g.log.Logf("Total unique instrumentations: %d", stats.UniqueInstrumentations)
	g.log.Logf("Versions processed: %d", stats.VersionsProcessed)
	return nil
}

// ProcessVersion ingests one version and writes its manifest. Versions must be
// processed one at a time: the changed count depends on every earlier one.
func (g *Generator) ProcessVersion(ctx context.Context, v versions.Version) (*types.VersionManifest, error) {
	start := time.Now()

	list, err := parser.ParseFile(g.opts.Fs, v.SourcePath)
	if err != nil {
		return nil, err
	}
	entries := parser.Extract(list)
	g.log.Logf("  Found %d instrumentations", len(entries))

	items, err := g.prepare(ctx, entries)
	if err != nil {
		return nil, err
	}

	// Registration runs in source order: the first id to store a document
	// names it, and its URL is part of every sharing record's content.
	manifest := types.NewVersionManifest(v.Version, v.ReleaseDate)
	newCount := 0
	for _, p := range items {
		rec := p.record
		if p.doc != nil {
			if err := g.attachDocument(ctx, &rec, *p.doc, p.content); err != nil {
				return nil, err
			}
		}
		ref, isNew, err := g.store.Put(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("failed to store %s: %w", rec.ID, err)
		}
		manifest.Add(rec.ID, ref)
		if isNew {
			newCount++
			g.conventionMetrics += countConventionMetrics(g.opts.Table, rec)
		}
	}
	g.log.Logf("  New/changed instrumentations: %d", newCount)

	manifest.Metadata.TotalCount = len(entries)
	if len(g.manifests) > 0 {
		changed := newCount
		manifest.Metadata.ChangedFromPrevious = &changed
	}

	if err := g.store.WriteJSON(filepath.Join(storage.VersionsDir, v.Version+".json"), manifest); err != nil {
		return nil, err
	}
	g.manifests = append(g.manifests, manifest)
	g.opts.Metrics.observeVersion(v.Version, time.Since(start))
	return manifest, nil
}

// prepared is an entry ready to store. doc is set when a readable document
// exists for the record.
type prepared struct {
	record  types.Instrumentation
	doc     *docs.Document
	content string
}

// prepare classifies telemetry and loads documents for every entry in
// parallel. Nothing is registered in the store here. The result keeps
// source order.
func (g *Generator) prepare(ctx context.Context, entries []parser.Entry) ([]prepared, error) {
	out := make([]prepared, len(entries))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.Workers)
	for i := range entries {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec := entries[i].Record
			if rec.Telemetry != nil {
				rec.Telemetry = semconv.AnnotateTelemetry(g.opts.Table, rec.Telemetry)
			}
			out[i] = prepared{record: rec}
			g.loadDocument(&out[i])
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// loadDocument finds and reads p's document. A document that cannot be read
// is skipped with a warning.
func (g *Generator) loadDocument(p *prepared) {
	if g.opts.Docs == nil {
		return
	}
	doc, ok := g.opts.Docs.Find(p.record.ID)
	if !ok {
		return
	}
	content, err := g.opts.Docs.Read(doc)
	if err != nil {
		g.log.Warnf("Skipping document for %s: %v", p.record.ID, err)
		return
	}
	p.doc = &doc
	p.content = content
}

// attachDocument stores a loaded document and links rec to it. A document
// that cannot be written fails the version.
func (g *Generator) attachDocument(ctx context.Context, rec *types.Instrumentation, doc docs.Document, content string) error {
	ref, _, err := g.store.PutMarkdown(ctx, rec.ID, content, doc.Hash)
	if err != nil {
		return fmt.Errorf("failed to store document for %s: %w", rec.ID, err)
	}
	rec.MarkdownHash = ref.Hash
	rec.MarkdownURL = ref.URL
	return nil
}

// countConventionMetrics counts rec's metric definitions whose names are
// semantic-convention metrics.
func countConventionMetrics(table *semconv.Table, rec types.Instrumentation) int {
	n := 0
	for _, phase := range rec.Telemetry {
		for _, m := range phase.Metrics {
			if table.IsConventionMetric(m.Name) {
				n++
			}
		}
	}
	return n
}

// Manifests returns the manifests produced so far, in processing order.
func (g *Generator) Manifests() []*types.VersionManifest {
	return g.manifests
}

// Store returns the run's content store.
func (g *Generator) Store() *storage.ContentStore {
	return g.store
}

// Stats summarizes the run so far.
func (g *Generator) Stats() Stats {
	stats := Stats{
		UniqueInstrumentations: g.store.UniqueCount(),
		VersionsProcessed:      len(g.manifests),
		MarkdownDocuments:      g.store.MarkdownCount(),
		ConventionMetrics:      g.conventionMetrics,
	}
	for _, m := range g.manifests {
		stats.TotalInstrumentations += m.Metadata.TotalCount
	}
	stats.DedupHits = g.store.TotalCount() - g.store.UniqueCount()
	return stats
}
