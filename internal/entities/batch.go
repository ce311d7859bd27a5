package entities

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/scholarly/openalex-cache/internal/domain"
	"github.com/scholarly/openalex-cache/internal/observability"
)

const (
	// IDBatchSize is how many OpenAlex IDs fit in one OR-joined filter
	// before the request URL exceeds the API's length limit.
	IDBatchSize = 100

	// DOIBatchSize is the same bound for DOIs, which are longer strings.
	DOIBatchSize = 60
)

// BatchLookup retrieves many entities by explicit identifier list, chunking
// the list to respect the API's per-request filter size and optionally
// restoring the caller's input order.
type BatchLookup struct {
	client  APIClient
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewBatchLookup creates a batch lookup helper.
func NewBatchLookup(client APIClient, logger zerolog.Logger, metrics *observability.Metrics) *BatchLookup {
	return &BatchLookup{client: client, logger: logger, metrics: metrics}
}

// ByIDs fetches entities of the given category by their OpenAlex IDs, issuing
// one OR-joined filter request per chunk of at most IDBatchSize ids. With
// ordered set, the result has exactly one slot per input ID in input order,
// nil where the API knows no such entity; otherwise results come back in
// whatever order the API returned them.
func (b *BatchLookup) ByIDs(ctx context.Context, category domain.Category, ids []string, ordered bool) ([]domain.Record, error) {
	return b.lookup(ctx, category, ids, IDBatchSize, "ids.openalex", ordered, func(record domain.Record) string {
		return record.ShortID()
	}, domain.ShortID)
}

// ByDOIs fetches works by DOI, one OR-joined filter request per chunk of at
// most DOIBatchSize DOIs. Matching is case-insensitive and ignores the
// https://doi.org/ prefix on either side.
func (b *BatchLookup) ByDOIs(ctx context.Context, dois []string, ordered bool) ([]domain.Record, error) {
	return b.lookup(ctx, domain.CategoryWorks, dois, DOIBatchSize, "doi", ordered, func(record domain.Record) string {
		return domain.NormalizeDOI(record.DOI())
	}, domain.NormalizeDOI)
}

// lookup runs the chunked fetch. recordKey extracts the normalized match key
// from a returned record; inputKey normalizes a caller-supplied identifier to
// the same space.
func (b *BatchLookup) lookup(ctx context.Context, category domain.Category, inputs []string, batchSize int, filterField string, ordered bool, recordKey func(domain.Record) string, inputKey func(string) string) ([]domain.Record, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	found := make([]domain.Record, 0, len(inputs))
	for start := 0; start < len(inputs); start += batchSize {
		end := start + batchSize
		if end > len(inputs) {
			end = len(inputs)
		}

		chunk := make([]string, 0, end-start)
		for _, in := range inputs[start:end] {
			chunk = append(chunk, inputKey(in))
		}

		// The page size is pinned to the chunk size: every id in the
		// chunk must fit on the single page the request fetches, or
		// matching entities would be reported as unknown.
		records, err := b.client.FilterByIDSet(ctx, category, filterField, chunk, batchSize)
		if err != nil {
			return nil, domain.NewFetchError("batch lookup of "+category.String(), err)
		}
		if b.metrics != nil {
			b.metrics.BatchLookups.Inc()
		}
		found = append(found, records...)
	}

	b.logger.Debug().
		Str("category", category.String()).
		Int("requested", len(inputs)).
		Int("found", len(found)).
		Msg("batch lookup complete")

	if !ordered {
		return found, nil
	}

	positions := make(map[string]int, len(found))
	for i, record := range found {
		positions[recordKey(record)] = i
	}

	out := make([]domain.Record, len(inputs))
	for i, in := range inputs {
		if pos, ok := positions[inputKey(in)]; ok {
			out[i] = found[pos]
		}
	}
	return out, nil
}

// AsTable applies transform to every non-nil record and normalizes the list
// into a table. Nil records become all-nil rows, preserving the positional
// contract of an ordered lookup.
func AsTable(records []domain.Record, transform TransformFunc) (*domain.Table, error) {
	if transform != nil {
		for _, record := range records {
			if record == nil {
				continue
			}
			if err := transform(record); err != nil {
				return nil, domain.NewFetchError("transforming record", err)
			}
		}
	}
	return domain.NormalizeRecords(records), nil
}
