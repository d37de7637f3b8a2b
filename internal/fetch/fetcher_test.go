package fetch_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/contract"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagedSource simulates a cursor-paginated API over fixed pages.
func pagedSource(pages [][]map[string]any) contract.PageFunc {
	return func(_ context.Context, cursor string) ([]map[string]any, string, error) {
		i := 0
		if cursor != "" {
			_, err := fmt.Sscanf(cursor, "page-%d", &i)
			if err != nil {
				return nil, "", fmt.Errorf("bad cursor %q", cursor)
			}
		}
		next := ""
		if i+1 < len(pages) {
			next = fmt.Sprintf("page-%d", i+1)
		}
		return pages[i], next, nil
	}
}

func rows(ids ...int) []map[string]any {
	out := make([]map[string]any, len(ids))
	for i, id := range ids {
		out[i] = map[string]any{"id": id}
	}
	return out
}

// recordingConsumer captures batches handed to it, concurrency-safe.
type recordingConsumer struct {
	mu      sync.Mutex
	batches map[int][]map[string]any
	failAt  int // batch index to fail on; -1 never fails
}

func newRecordingConsumer() *recordingConsumer {
	return &recordingConsumer{batches: make(map[int][]map[string]any), failAt: -1}
}

func (c *recordingConsumer) ConsumeBatch(_ context.Context, index int, items []map[string]any) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index == c.failAt {
		return nil, errors.New("disk full")
	}
	c.batches[index] = items
	return []string{fmt.Sprintf("data_%03d.parquet", index)}, nil
}

func TestFetchAllConcatenatesInPageOrder(t *testing.T) {
	pages := [][]map[string]any{rows(1, 2), rows(3), rows(4, 5, 6)}

	all, err := fetch.New(1).FetchAll(context.Background(), pagedSource(pages))
	require.NoError(t, err)
	require.Len(t, all, 6)
	for i, item := range all {
		assert.Equal(t, i+1, item["id"])
	}
}

func TestFetchAllEmptyFirstPage(t *testing.T) {
	all, err := fetch.New(4).FetchAll(context.Background(), pagedSource([][]map[string]any{{}}))
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestFetchIntoAssignsSequentialIndices(t *testing.T) {
	pages := [][]map[string]any{rows(1, 2), rows(3, 4), rows(5)}
	consumer := newRecordingConsumer()

	total, err := fetch.New(3).FetchInto(context.Background(), pagedSource(pages), consumer)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)

	indices := make([]int, 0, len(consumer.batches))
	for i := range consumer.batches {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	assert.Equal(t, []int{0, 1, 2}, indices)

	// Batch indices follow page order.
	assert.Equal(t, rows(1, 2), consumer.batches[0])
	assert.Equal(t, rows(3, 4), consumer.batches[1])
	assert.Equal(t, rows(5), consumer.batches[2])
}

func TestFetchIntoSkipsEmptyPages(t *testing.T) {
	pages := [][]map[string]any{rows(1), {}, rows(2)}
	consumer := newRecordingConsumer()

	total, err := fetch.New(2).FetchInto(context.Background(), pagedSource(pages), consumer)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, consumer.batches, 2)
	assert.Equal(t, rows(1), consumer.batches[0])
	assert.Equal(t, rows(2), consumer.batches[1])
}

func TestFetchIntoEmptySource(t *testing.T) {
	consumer := newRecordingConsumer()
	total, err := fetch.New(2).FetchInto(context.Background(), pagedSource([][]map[string]any{{}}), consumer)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, consumer.batches)
}

func TestFetchIntoPropagatesFetchError(t *testing.T) {
	calls := 0
	fn := func(_ context.Context, _ string) ([]map[string]any, string, error) {
		calls++
		if calls > 2 {
			return nil, "", errors.New("upstream 500")
		}
		return rows(calls), fmt.Sprintf("c%d", calls), nil
	}

	consumer := newRecordingConsumer()
	_, err := fetch.New(2).FetchInto(context.Background(), fn, consumer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream 500")

	// Batches persisted before the failure survive.
	for i, items := range consumer.batches {
		assert.Equal(t, rows(i+1), items)
	}
}

func TestFetchIntoPropagatesConsumerError(t *testing.T) {
	pages := [][]map[string]any{rows(1), rows(2), rows(3), rows(4)}
	consumer := newRecordingConsumer()
	consumer.failAt = 1

	_, err := fetch.New(1).FetchInto(context.Background(), pagedSource(pages), consumer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
