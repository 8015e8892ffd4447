package semconv

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-github/v74/github"
	"golang.org/x/sync/errgroup"

	"github.com/getlawrence/instrumentation-explorer/internal/logger"
)

const (
	defaultOwner     = "open-telemetry"
	defaultRepo      = "semantic-conventions"
	defaultModelPath = "model"
	defaultWorkers   = 4
	userAgent        = "instrumentation-explorer"

	listingCacheFile = "_directory_listing.json"
)

// listingEntry is the part of a GitHub contents entry kept in the cache.
type listingEntry struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	DownloadURL string `json:"download_url"`
}

// Fetcher builds a Table from the semantic-conventions model directory on
// GitHub. Directory listings go through the GitHub API and are rate limited;
// model files are downloaded from their raw URLs with retries. Both are
// cached.
type Fetcher struct {
	github     *github.Client
	httpClient *http.Client
	cache      Cache
	limiter    *RateLimiter
	logger     logger.Logger
	categories []string
	owner      string
	repo       string
	modelPath  string
	workers    int
	newBackOff func() backoff.BackOff
}

// Option configures a Fetcher.
type Option func(*Fetcher) error

// WithBaseURL points the GitHub client at a different API root.
func WithBaseURL(raw string) Option {
	return func(f *Fetcher) error {
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid GitHub base URL %q: %w", raw, err)
		}
		f.github.BaseURL = u
		return nil
	}
}

// WithCategories replaces the category allow-list.
func WithCategories(categories []string) Option {
	return func(f *Fetcher) error {
		f.categories = append([]string(nil), categories...)
		return nil
	}
}

// WithHTTPClient sets the client used to download model files.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) error {
		f.httpClient = client
		return nil
	}
}

// WithWorkers bounds the number of categories fetched concurrently.
func WithWorkers(n int) Option {
	return func(f *Fetcher) error {
		if n < 1 {
			return fmt.Errorf("workers must be at least 1, got %d", n)
		}
		f.workers = n
		return nil
	}
}

// WithBackOff sets the retry policy for file downloads.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(f *Fetcher) error {
		f.newBackOff = newBackOff
		return nil
	}
}

// NewFetcher creates a fetcher. An empty token means anonymous access with
// GitHub's lower rate limit.
func NewFetcher(githubToken string, cache Cache, log logger.Logger, opts ...Option) (*Fetcher, error) {
	var client *github.Client
	var limiter *RateLimiter

	if githubToken != "" {
		client = github.NewClient(nil).WithAuthToken(githubToken)
		limiter = NewRateLimiter(5000, time.Hour) // Authenticated: 5000 requests per hour
	} else {
		client = github.NewClient(nil)
		limiter = NewRateLimiter(60, time.Hour) // Anonymous: 60 requests per hour
	}
	client.UserAgent = userAgent

	f := &Fetcher{
		github:     client,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      cache,
		limiter:    limiter,
		logger:     log,
		categories: append([]string(nil), DefaultCategories...),
		owner:      defaultOwner,
		repo:       defaultRepo,
		modelPath:  defaultModelPath,
		workers:    defaultWorkers,
		newBackOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
		},
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

type categoryFile struct {
	name string
	doc  *modelFile
}

// Fetch downloads (or loads from cache) every model file of every category
// and merges them into a table. Failures of individual categories or files
// are logged and skipped; an error is returned only if nothing could be
// loaded or ctx is done.
func (f *Fetcher) Fetch(ctx context.Context) (*Table, error) {
	results := make([][]categoryFile, len(f.categories))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for i, category := range f.categories {
		i, category := i, category
		g.Go(func() error {
			files, err := f.fetchCategory(gctx, category)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				f.logger.Warnf("Failed to fetch convention category %s: %v", category, err)
				return nil
			}
			results[i] = files
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge in allow-list order so first-writer-wins is deterministic.
	table := NewTable()
	loaded := 0
	for i, category := range f.categories {
		for _, file := range results[i] {
			table.merge(DisplayName(category, file.name), file.doc)
			loaded++
		}
	}
	if loaded == 0 {
		return nil, fmt.Errorf("no semantic convention files could be loaded")
	}

	attrs, metrics := table.Len()
	f.logger.Logf("Loaded %d semantic convention attributes and %d metrics from %d files", attrs, metrics, loaded)
	return table, nil
}

func (f *Fetcher) fetchCategory(ctx context.Context, category string) ([]categoryFile, error) {
	entries, err := f.listing(ctx, category)
	if err != nil {
		return nil, err
	}

	var files []categoryFile
	for _, entry := range entries {
		if entry.Type != "" && entry.Type != "file" {
			continue
		}
		if !strings.HasSuffix(entry.Name, ".yaml") {
			continue
		}

		doc, err := f.modelFile(ctx, category, entry)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			f.logger.Warnf("Failed to load %s/%s: %v", category, entry.Name, err)
			continue
		}
		if len(doc.Groups) == 0 {
			continue
		}
		files = append(files, categoryFile{name: entry.Name, doc: doc})
	}
	return files, nil
}

// listing returns the directory listing of a category, from cache when
// possible.
func (f *Fetcher) listing(ctx context.Context, category string) ([]listingEntry, error) {
	key := category + "/" + listingCacheFile

	if cached, err := f.cache.Get(ctx, key); err == nil {
		var entries []listingEntry
		if err := json.Unmarshal(cached, &entries); err == nil {
			return entries, nil
		}
		f.logger.Warnf("Ignoring corrupt cached listing for %s", category)
	} else if !IsCacheMiss(err) {
		f.logger.Warnf("Cache read failed for %s: %v", key, err)
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	dirPath := path.Join(f.modelPath, category)
	_, contents, _, err := f.github.Repositories.GetContents(ctx, f.owner, f.repo, dirPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dirPath, err)
	}

	entries := make([]listingEntry, 0, len(contents))
	for _, c := range contents {
		entries = append(entries, listingEntry{
			Name:        c.GetName(),
			Type:        c.GetType(),
			DownloadURL: c.GetDownloadURL(),
		})
	}

	if data, err := json.MarshalIndent(entries, "", "  "); err == nil {
		if err := f.cache.Set(ctx, key, data); err != nil {
			f.logger.Warnf("Failed to cache listing for %s: %v", category, err)
		}
	}
	return entries, nil
}

// modelFile returns a parsed model file, from cache when possible. Only
// files that parse are cached.
func (f *Fetcher) modelFile(ctx context.Context, category string, entry listingEntry) (*modelFile, error) {
	key := category + "/" + entry.Name

	if cached, err := f.cache.Get(ctx, key); err == nil {
		return parseModelFile(cached)
	} else if !IsCacheMiss(err) {
		f.logger.Warnf("Cache read failed for %s: %v", key, err)
	}

	if entry.DownloadURL == "" {
		return nil, fmt.Errorf("no download URL")
	}

	data, err := backoff.RetryWithData(func() ([]byte, error) {
		return f.download(ctx, entry.DownloadURL)
	}, backoff.WithContext(f.newBackOff(), ctx))
	if err != nil {
		return nil, err
	}

	doc, err := parseModelFile(data)
	if err != nil {
		return nil, err
	}
	if err := f.cache.Set(ctx, key, data); err != nil {
		f.logger.Warnf("Failed to cache %s: %v", key, err)
	}
	return doc, nil
}

func (f *Fetcher) download(ctx context.Context, downloadURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("download returned status %d", resp.StatusCode)
	default:
		return nil, backoff.Permanent(fmt.Errorf("download returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return body, nil
}
