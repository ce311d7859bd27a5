package entities

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarly/openalex-cache/internal/domain"
)

func newTestBatchLookup(client *mockClient) *BatchLookup {
	return NewBatchLookup(client, zerolog.Nop(), nil)
}

func TestBatchLookupPartitioning(t *testing.T) {
	// 2*IDBatchSize + 7 ids must produce exactly three requests, the
	// first two full and the last carrying the remainder.
	ids := make([]string, 2*IDBatchSize+7)
	for i := range ids {
		ids[i] = fmt.Sprintf("W%d", i+1)
	}

	client := &mockClient{}
	_, err := newTestBatchLookup(client).ByIDs(context.Background(), domain.CategoryWorks, ids, false)
	require.NoError(t, err)

	require.Len(t, client.batches, 3)
	assert.Len(t, client.batches[0], IDBatchSize)
	assert.Len(t, client.batches[1], IDBatchSize)
	assert.Len(t, client.batches[2], 7)

	// Each request's page must fit its whole chunk, or matching ids
	// would come back as unknown.
	assert.Equal(t, []int{IDBatchSize, IDBatchSize, IDBatchSize}, client.batchPerPages)
}

func TestBatchLookupDOIPartitioning(t *testing.T) {
	dois := make([]string, DOIBatchSize+1)
	for i := range dois {
		dois[i] = fmt.Sprintf("10.1000/x%d", i+1)
	}

	client := &mockClient{}
	_, err := newTestBatchLookup(client).ByDOIs(context.Background(), dois, false)
	require.NoError(t, err)

	require.Len(t, client.batches, 2)
	assert.Len(t, client.batches[0], DOIBatchSize)
	assert.Len(t, client.batches[1], 1)
	assert.Equal(t, []int{DOIBatchSize, DOIBatchSize}, client.batchPerPages)
}

func TestBatchLookupOrderRestoration(t *testing.T) {
	t.Run("unknown ids become nil slots", func(t *testing.T) {
		client := &mockClient{
			batchResults: [][]domain.Record{{
				{"id": "https://openalex.org/W3"},
				{"id": "https://openalex.org/W1"},
			}},
		}

		records, err := newTestBatchLookup(client).ByIDs(
			context.Background(), domain.CategoryWorks, []string{"W1", "W2", "W3"}, true)
		require.NoError(t, err)

		require.Len(t, records, 3)
		assert.Equal(t, "W1", records[0].ShortID())
		assert.Nil(t, records[1])
		assert.Equal(t, "W3", records[2].ShortID())
	})

	t.Run("full URLs match short ids", func(t *testing.T) {
		client := &mockClient{
			batchResults: [][]domain.Record{{{"id": "https://openalex.org/W1"}}},
		}

		records, err := newTestBatchLookup(client).ByIDs(
			context.Background(), domain.CategoryWorks, []string{"https://openalex.org/W1"}, true)
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.NotNil(t, records[0])
	})

	t.Run("DOI matching is case-insensitive", func(t *testing.T) {
		client := &mockClient{
			batchResults: [][]domain.Record{{
				{"id": "https://openalex.org/W1", "doi": "https://doi.org/10.1000/abc"},
			}},
		}

		records, err := newTestBatchLookup(client).ByDOIs(
			context.Background(), []string{"10.1000/ABC"}, true)
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.NotNil(t, records[0])
	})

	t.Run("unordered returns the API order", func(t *testing.T) {
		client := &mockClient{
			batchResults: [][]domain.Record{{
				{"id": "https://openalex.org/W3"},
				{"id": "https://openalex.org/W1"},
			}},
		}

		records, err := newTestBatchLookup(client).ByIDs(
			context.Background(), domain.CategoryWorks, []string{"W1", "W2", "W3"}, false)
		require.NoError(t, err)

		require.Len(t, records, 2)
		assert.Equal(t, "W3", records[0].ShortID())
	})
}

func TestBatchLookupEmptyInput(t *testing.T) {
	client := &mockClient{}
	records, err := newTestBatchLookup(client).ByIDs(context.Background(), domain.CategoryWorks, nil, true)
	require.NoError(t, err)
	assert.Nil(t, records)
	assert.Empty(t, client.batches)
}

func TestBatchLookupFailure(t *testing.T) {
	client := &mockClient{batchErr: errors.New("api down")}
	_, err := newTestBatchLookup(client).ByIDs(context.Background(), domain.CategoryWorks, []string{"W1"}, true)
	assert.ErrorIs(t, err, domain.ErrFetchFailed)
}

func TestAsTable(t *testing.T) {
	t.Run("nil slots become all-nil rows", func(t *testing.T) {
		records := []domain.Record{
			{"id": "https://openalex.org/W1", "cited_by_count": float64(4)},
			nil,
		}

		table, err := AsTable(records, nil)
		require.NoError(t, err)

		require.Equal(t, 2, table.NumRows())
		ids, ok := table.Column("id")
		require.True(t, ok)
		assert.Equal(t, "https://openalex.org/W1", ids[0])
		assert.Nil(t, ids[1])
	})

	t.Run("transform runs on non-nil records only", func(t *testing.T) {
		records := []domain.Record{nil, {"id": "https://openalex.org/W1"}}

		calls := 0
		_, err := AsTable(records, func(domain.Record) error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})
}
