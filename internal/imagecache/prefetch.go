package imagecache

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// Result is the outcome of prefetching one URL.
type Result struct {
	// URL is the remote image URL.
	URL string `json:"url"`
	// Source is what CacheImage returned: a handle, or the URL itself.
	Source string `json:"source"`
	// Err is set when the URL was not processed because ctx was done.
	Err error `json:"-"`
}

// prefetchJob is a single URL to warm.
type prefetchJob struct {
	index int
	url   string
}

// Prefetch warms the image cache for urls using a pool of parallelism workers.
//
// Empty and duplicate URLs are skipped. Results follow the order in which each
// URL first appears. Once ctx is done, the remaining URLs are not fetched and
// their results carry ctx.Err().
func Prefetch(
	ctx context.Context,
	strategy ImageCacheStrategy,
	urls []string,
	parallelism int,
	logger *slog.Logger,
) []Result {
	// Determine parallelism
	if parallelism <= 0 {
		parallelism = 1
	}

	// Use provided logger or create a no-op logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	unique := dedupe(urls)
	results := make([]Result, len(unique))
	if len(unique) == 0 {
		return results
	}

	// Create buffered channel sized to all URLs to avoid blocking on send
	jobs := make(chan prefetchJob, len(unique))
	var wg sync.WaitGroup

	// Spawn worker goroutines
	for range min(parallelism, len(unique)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				// Each worker writes only its own index
				if err := ctx.Err(); err != nil {
					results[j.index] = Result{URL: j.url, Source: j.url, Err: err}
					continue
				}
				results[j.index] = Result{URL: j.url, Source: strategy.CacheImage(ctx, j.url)}
			}
		}()
	}

	// Queue all URLs for processing
	for i, u := range unique {
		jobs <- prefetchJob{index: i, url: u}
	}

	// Signal no more jobs and wait for workers to finish
	close(jobs)
	wg.Wait()

	logger.DebugContext(ctx, "prefetched images", "count", len(unique), "parallelism", parallelism)
	return results
}

// dedupe drops empty and repeated URLs, keeping first appearances in order.
func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
