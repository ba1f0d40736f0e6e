// Package paging reconciles server-side pagination with filters the server
// cannot apply. It fetches backend pages until enough matching items exist to
// cut out the page the caller asked for.
package paging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/prodcat/internal/logger"
)

// DefaultMaxBackendPages bounds the backend pages read for one filtered page.
const DefaultMaxBackendPages = 100

// ErrInvalidPage is returned for a non-positive page size or page number.
var ErrInvalidPage = errors.New("paging: page size must be > 0 and page number >= 1")

// Predicate reports whether an item belongs in the filtered result.
type Predicate[T any] func(T) bool

// Backend fetches one backend page. backendPage starts at 1.
type Backend[T any] func(ctx context.Context, backendPage, pageSize int) ([]T, error)

// Hydrator completes the items of a chunk in place before filters run.
// It must not fail; items it cannot complete are left as they are.
type Hydrator[T any] func(ctx context.Context, chunk []T)

// Request is a user-visible page plus the filters applied after fetching.
// Server-side filters belong to the Backend closure.
type Request[T any] struct {
	PageSize   int
	PageNumber int
	Filters    []Predicate[T]
}

// Config holds fetcher limits.
type Config struct {
	MaxBackendPages int
}

// Fetcher runs page requests against a backend.
type Fetcher[T any] struct {
	maxBackendPages int
}

// NewFetcher creates a Fetcher. A nil config or a non-positive limit uses
// DefaultMaxBackendPages.
func NewFetcher[T any](cfg *Config) *Fetcher[T] {
	limit := DefaultMaxBackendPages
	if cfg != nil && cfg.MaxBackendPages > 0 {
		limit = cfg.MaxBackendPages
	}
	return &Fetcher[T]{maxBackendPages: limit}
}

// accumulator is the per-call state of a filtered fetch.
type accumulator[T any] struct {
	collected []T
	cursor    int
	exhausted bool
}

// FetchPage returns the requested page.
//
// Without filters it issues a single backend call for req.PageNumber and
// returns the chunk unchanged. With filters it walks backend pages from 1,
// keeping items that pass every filter, until PageNumber*PageSize matches are
// collected, a short chunk signals the end of the data, or the page limit is
// reached. A short or empty result is not an error. Backend errors are
// returned as is, without retry. hydrate may be nil.
func (f *Fetcher[T]) FetchPage(ctx context.Context, req Request[T], backend Backend[T], hydrate Hydrator[T]) ([]T, error) {
	if req.PageSize <= 0 || req.PageNumber < 1 {
		return nil, ErrInvalidPage
	}

	if len(req.Filters) == 0 {
		chunk, err := backend(ctx, req.PageNumber, req.PageSize)
		if err != nil {
			return nil, fmt.Errorf("fetch backend page %d: %w", req.PageNumber, err)
		}
		if hydrate != nil {
			hydrate(ctx, chunk)
		}
		return chunk, nil
	}

	start := time.Now()
	needed := req.PageNumber * req.PageSize
	acc := accumulator[T]{cursor: 1}

	for len(acc.collected) < needed && !acc.exhausted {
		if acc.cursor > f.maxBackendPages {
			logger.With(logger.Fields{
				logger.FieldBackendPage: acc.cursor - 1,
				logger.FieldCount:       len(acc.collected),
			}).Warn(ctx, "Backend page limit reached before the filtered page was filled")
			break
		}

		chunk, err := backend(ctx, acc.cursor, req.PageSize)
		if err != nil {
			return nil, fmt.Errorf("fetch backend page %d: %w", acc.cursor, err)
		}
		if hydrate != nil {
			hydrate(ctx, chunk)
		}

		matched := 0
		for _, item := range chunk {
			if matchesAll(item, req.Filters) {
				acc.collected = append(acc.collected, item)
				matched++
			}
		}
		logger.With(logger.Fields{
			logger.FieldBackendPage: acc.cursor,
			logger.FieldCount:       len(chunk),
			"matched":               matched,
		}).Debug(ctx, "Fetched backend page")

		acc.exhausted = len(chunk) < req.PageSize
		acc.cursor++
	}

	logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		logger.FieldCount:      len(acc.collected),
		"backend_pages":        acc.cursor - 1,
	}).Debug(ctx, "Filtered page collected: page=%d, size=%d", req.PageNumber, req.PageSize)

	return slicePage(acc.collected, req.PageNumber, req.PageSize), nil
}

func matchesAll[T any](item T, filters []Predicate[T]) bool {
	for _, keep := range filters {
		if !keep(item) {
			return false
		}
	}
	return true
}

// slicePage cuts page number out of items. Out of range yields an empty slice.
func slicePage[T any](items []T, page, size int) []T {
	from := (page - 1) * size
	if from >= len(items) {
		return []T{}
	}
	to := min(from+size, len(items))
	return items[from:to]
}
