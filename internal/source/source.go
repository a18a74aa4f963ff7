// Package source defines how balance-sheet statements are fetched from
// external providers and cached locally.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/statement"
)

// Frequency selects annual or quarterly statements.
type Frequency string

// Supported frequencies.
const (
	Annual    Frequency = "annual"
	Quarterly Frequency = "quarterly"
)

// Request identifies the statement to fetch.
type Request struct {
	Symbol    string
	Frequency Frequency
}

// Fetcher retrieves a raw, unclassified statement.
type Fetcher interface {
	// Name identifies the provider in cache keys and messages.
	Name() string
	Fetch(ctx context.Context, req Request) (*statement.Table, error)
}

// Cache stores raw statements by key.
type Cache interface {
	SaveStatement(ctx context.Context, key string, table *statement.Table) error
	// LoadStatement returns common.ErrNotFound on a miss.
	LoadStatement(ctx context.Context, key string) (*statement.Table, time.Time, error)
}

// Key builds the cache key for a request, e.g. "yahoo:BP.L:annual".
func Key(provider string, req Request) string {
	freq := req.Frequency
	if freq == "" {
		freq = Annual
	}
	return fmt.Sprintf("%s:%s:%s", provider, strings.ToUpper(req.Symbol), freq)
}

// CachedFetcher serves statements from a cache while they are younger than
// maxAge and refreshes them from the wrapped fetcher otherwise.
type CachedFetcher struct {
	next   Fetcher
	cache  Cache
	logger *slog.Logger
	now    func() time.Time
	maxAge time.Duration
}

// WithCache wraps next with cache. A zero maxAge always refetches but still
// records what was fetched.
func WithCache(next Fetcher, cache Cache, maxAge time.Duration) *CachedFetcher {
	return &CachedFetcher{
		next:   next,
		cache:  cache,
		maxAge: maxAge,
		now:    time.Now,
		logger: slog.Default().With("component", "source-cache"),
	}
}

// Name returns the wrapped fetcher's name.
func (c *CachedFetcher) Name() string {
	return c.next.Name()
}

// Fetch returns a cached statement when fresh, otherwise fetches and caches it.
func (c *CachedFetcher) Fetch(ctx context.Context, req Request) (*statement.Table, error) {
	key := Key(c.next.Name(), req)

	if c.maxAge > 0 {
		table, fetchedAt, err := c.cache.LoadStatement(ctx, key)
		switch {
		case err == nil && c.now().Sub(fetchedAt) < c.maxAge:
			c.logger.Debug("Using cached statement", "key", key, "fetched_at", fetchedAt)
			return table, nil
		case err != nil && !errors.Is(err, common.ErrNotFound):
			c.logger.Warn("Failed to read statement cache", "key", key, "error", err)
		}
	}

	table, err := c.next.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := c.cache.SaveStatement(ctx, key, table); err != nil {
		c.logger.Warn("Failed to cache statement", "key", key, "error", err)
	}
	return table, nil
}
