// Package fetch drives cursor-paginated data sources to exhaustion.
//
// Pagination is inherently sequential: each page's cursor is only known once
// the previous page arrives. The worker pool therefore overlaps batch
// persistence with the next in-flight fetch rather than fetching pages
// concurrently. Batch indices are assigned by the producer in page order, so
// the on-disk numbering is deterministic no matter how persistence work
// interleaves.
package fetch

import (
	"context"
	"sync/atomic"

	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/contract"
	"golang.org/x/sync/errgroup"
)

// Fetcher walks a paginated source page by page.
type Fetcher struct {
	workers int
}

// New returns a Fetcher with the given number of persistence workers.
// Values below one fall back to a single worker.
func New(workers int) *Fetcher {
	if workers < 1 {
		workers = 1
	}
	return &Fetcher{workers: workers}
}

// batch pairs a page of items with its zero-based index.
type batch struct {
	index int
	items []map[string]any
}

// FetchAll retrieves every page and returns the concatenation in page order.
// An empty first page with no next cursor yields an empty, non-nil slice.
func (f *Fetcher) FetchAll(ctx context.Context, fn contract.PageFunc) ([]map[string]any, error) {
	all := []map[string]any{}
	cursor := ""
	for {
		items, next, err := fn(ctx, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if next == "" {
			return all, nil
		}
		cursor = next
	}
}

// FetchInto streams every page to the consumer and returns the total item
// count. Pages with no items are skipped so that every written batch carries
// rows. On error the fetch stops; batches already handed to the consumer and
// confirmed written remain valid, and the caller may retry idempotently.
func (f *Fetcher) FetchInto(ctx context.Context, fn contract.PageFunc, consumer contract.BatchConsumer) (int64, error) {
	g, ctx := errgroup.WithContext(ctx)
	batches := make(chan batch, f.workers)

	var total atomic.Int64

	g.Go(func() error {
		defer close(batches)
		cursor := ""
		index := 0
		for {
			items, next, err := fn(ctx, cursor)
			if err != nil {
				return err
			}
			if len(items) > 0 {
				select {
				case batches <- batch{index: index, items: items}:
				case <-ctx.Done():
					return ctx.Err()
				}
				index++
			}
			if next == "" {
				return nil
			}
			cursor = next
		}
	})

	for range f.workers {
		g.Go(func() error {
			for b := range batches {
				if _, err := consumer.ConsumeBatch(ctx, b.index, b.items); err != nil {
					return err
				}
				total.Add(int64(len(b.items)))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return total.Load(), err
	}
	return total.Load(), nil
}
