package entities

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/scholarly/openalex-cache/internal/domain"
	"github.com/scholarly/openalex-cache/internal/observability"
	"github.com/scholarly/openalex-cache/internal/openalex"
)

// APIClient is the slice of the OpenAlex client the entity layer consumes.
type APIClient interface {
	Count(ctx context.Context, category domain.Category, filter string) (int, error)
	Page(ctx context.Context, category domain.Category, filter string, perPage int, cursor string) ([]domain.Record, string, error)
	GetByID(ctx context.Context, id string) (domain.Record, error)
	FilterByIDSet(ctx context.Context, category domain.Category, filterField string, values []string, perPage int) ([]domain.Record, error)
}

// Fetcher drives paginated bulk retrieval and materializes the results as a
// table. Pages are requested sequentially; the OpenAlex API rewards polite
// single-stream clients and the rate limiter sits below us anyway.
type Fetcher struct {
	client   APIClient
	perPage  int
	progress *Progress
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// NewFetcher creates a bulk fetcher. perPage falls back to the API maximum
// when zero. The progress tracker may be shared with whatever surface polls
// fetch state.
func NewFetcher(client APIClient, perPage int, progress *Progress, logger zerolog.Logger, metrics *observability.Metrics) *Fetcher {
	if perPage <= 0 || perPage > openalex.DefaultPerPage {
		perPage = openalex.DefaultPerPage
	}
	if progress == nil {
		progress = &Progress{}
	}
	return &Fetcher{
		client:   client,
		perPage:  perPage,
		progress: progress,
		logger:   logger,
		metrics:  metrics,
	}
}

// Fetch retrieves every entity of the given category matching filter, up to
// maxEntities (nil means all matches). It first counts the matches, then
// pages through the result set applying transform to each record, and
// finally normalizes the collected records into a table. Progress is
// reported after every page and set to exactly 1.0 on completion. Any
// remote or transform failure aborts the fetch with nothing materialized.
func (f *Fetcher) Fetch(ctx context.Context, category domain.Category, filter string, maxEntities *int, transform TransformFunc) (*domain.Table, error) {
	what := category.String()
	f.progress.Set(0, "Counting "+what)
	started := time.Now()
	if f.metrics != nil {
		f.metrics.RecordFetchStarted()
	}

	total, err := f.client.Count(ctx, category, filter)
	if err != nil {
		return nil, f.fail(domain.NewFetchError("counting "+what, err))
	}

	target := total
	if maxEntities != nil && *maxEntities < target {
		target = *maxEntities
	}

	f.logger.Debug().
		Str("category", what).
		Str("filter", filter).
		Int("matched", total).
		Int("target", target).
		Msg("starting bulk fetch")

	if target == 0 {
		f.progress.Set(1, "Nothing to download")
		if f.metrics != nil {
			f.metrics.RecordFetchCompleted(time.Since(started).Seconds())
		}
		return domain.NewTable(nil), nil
	}

	records := make([]domain.Record, 0, target)
	cursor := openalex.CursorStart
	for len(records) < target {
		perPage := f.perPage
		if remaining := target - len(records); remaining < perPage {
			perPage = remaining
		}

		page, next, err := f.client.Page(ctx, category, filter, perPage, cursor)
		if err != nil {
			return nil, f.fail(domain.NewFetchError("fetching page of "+what, err))
		}
		if f.metrics != nil {
			f.metrics.FetchPages.Inc()
		}

		for _, record := range page {
			if transform != nil {
				if err := transform(record); err != nil {
					return nil, f.fail(domain.NewFetchError("transforming "+what+" record", err))
				}
			}
			records = append(records, record)
			if len(records) == target {
				break
			}
		}

		f.progress.SetCount(len(records), target, what)

		if next == "" || len(page) == 0 {
			break
		}
		cursor = next
	}

	table := domain.NormalizeRecords(records)
	f.progress.Set(1, fmt.Sprintf("Downloaded %d %s", table.NumRows(), what))
	if f.metrics != nil {
		f.metrics.FetchedEntities.Add(float64(table.NumRows()))
		f.metrics.RecordFetchCompleted(time.Since(started).Seconds())
	}
	return table, nil
}

// fail counts a failed fetch and passes the error through.
func (f *Fetcher) fail(err error) error {
	if f.metrics != nil {
		f.metrics.RecordFetchFailed()
	}
	return err
}
