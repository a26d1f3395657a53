// Package fetch issues batches of tracked GET requests concurrently.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iliamunaev/inflight/internal/apperr"
	"github.com/iliamunaev/inflight/internal/logging"
	"github.com/iliamunaev/inflight/internal/model"
	"github.com/iliamunaev/inflight/internal/pool"
)

// Fetcher runs GET requests through a tracked client, bounded by a pool.
type Fetcher struct {
	client  *http.Client
	pool    *pool.Pool
	timeout time.Duration
	log     *logging.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithRequestTimeout bounds each individual request. Zero disables it.
func WithRequestTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.timeout = d }
}

// WithLogger sets the logger for per-call results.
func WithLogger(l *logging.Logger) Option {
	return func(f *Fetcher) { f.log = l.Named("fetch") }
}

// New creates a Fetcher. It panics if client or p is nil.
func New(client *http.Client, p *pool.Pool, opts ...Option) *Fetcher {
	if client == nil {
		panic("fetch.New: nil client")
	}
	if p == nil {
		panic("fetch.New: nil pool")
	}
	f := &Fetcher{client: client, pool: p, log: logging.Nop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll fetches every url concurrently and returns one result per url, in
// input order regardless of which request finished first.
//
// A failing request does not cancel its siblings. The returned error is the
// first failure errgroup observed, or nil if every call succeeded.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) ([]model.CallResult, error) {
	var g errgroup.Group
	results := make([]model.CallResult, len(urls))

	record := func(i int, url string) func() error {
		return func() error {
			start := time.Now()
			code, err := f.fetch(ctx, url)

			res := model.CallResult{
				URL:        url,
				Outcome:    "ok",
				StatusCode: code,
				DurationMS: time.Since(start).Milliseconds(),
			}
			if err != nil {
				res.Outcome = apperr.Kind(err)
				res.Detail = err.Error()
				f.log.Warn(ctx, "fetch failed",
					zap.String("url", url),
					zap.String("outcome", res.Outcome),
					zap.Error(err),
				)
			}
			// Each goroutine owns its own index.
			results[i] = res
			return err
		}
	}

	for i, url := range urls {
		g.Go(record(i, url))
	}

	err := g.Wait()
	return results, err
}

func (f *Fetcher) fetch(ctx context.Context, url string) (int, error) {
	if err := f.pool.Acquire(ctx); err != nil {
		return 0, err
	}
	defer f.pool.Release()

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	res, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	// Drain so the tracked body settles on EOF and the connection is reused.
	if _, err := io.Copy(io.Discard, res.Body); err != nil {
		return res.StatusCode, fmt.Errorf("read body: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return res.StatusCode, &apperr.StatusError{URL: url, Code: res.StatusCode}
	}
	return res.StatusCode, nil
}
