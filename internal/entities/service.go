package entities

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/scholarly/openalex-cache/internal/domain"
	"github.com/scholarly/openalex-cache/internal/observability"
)

// TableStore is the persistence surface the service loads tables through.
// The store decides whether to serve from disk or call back into fetch.
type TableStore interface {
	Load(ctx context.Context, key string, fetch func(context.Context) (*domain.Table, error), onlyColumns []string) (*domain.Table, error)

	// Extension is the file extension (without dot) the store writes,
	// which participates in cache key derivation.
	Extension() string
}

// Request describes one entity fetch.
type Request struct {
	// Category is the target entity category.
	Category domain.Category

	// SeedID scopes the fetch to entities related to this entity; empty
	// means an unscoped fetch-all bounded by MaxEntities.
	SeedID string

	// ExtraFilters are merged over the seed-derived filter; their keys win.
	ExtraFilters FetchQuery

	// MaxEntities caps the number of fetched entities. Nil applies the
	// service default; a pointer to a negative value means unbounded.
	MaxEntities *int

	// LoadOnlyColumns narrows the returned table to these columns. The
	// persisted file always keeps the full column set.
	LoadOnlyColumns []string
}

// Service is the high-level entity retrieval facade: cached bulk fetches,
// batch lookups and single-entity helpers.
type Service struct {
	client     APIClient
	store      TableStore
	fetcher    *Fetcher
	batch      *BatchLookup
	progress   *Progress
	defaultMax int
	logger     zerolog.Logger
	metrics    *observability.Metrics
}

// ServiceConfig configures the entity service.
type ServiceConfig struct {
	// PerPage is the page size for bulk fetches, capped at the API maximum.
	PerPage int

	// DefaultMaxEntities caps fetches whose request does not set a limit.
	// Zero or negative means unbounded by default.
	DefaultMaxEntities int
}

// NewService creates the entity service.
func NewService(client APIClient, store TableStore, cfg ServiceConfig, logger zerolog.Logger, metrics *observability.Metrics) *Service {
	progress := &Progress{}
	return &Service{
		client:     client,
		store:      store,
		fetcher:    NewFetcher(client, cfg.PerPage, progress, logger, metrics),
		batch:      NewBatchLookup(client, logger, metrics),
		progress:   progress,
		defaultMax: cfg.DefaultMaxEntities,
		logger:     logger,
		metrics:    metrics,
	}
}

// FetchEntities returns the table for the request, from cache when a fresh
// entry exists and from the API otherwise.
func (s *Service) FetchEntities(ctx context.Context, req Request) (*domain.Table, error) {
	maxEntities := s.resolveMax(req.MaxEntities)

	query, err := BuildQuery(req.Category, req.SeedID, req.ExtraFilters)
	if err != nil {
		return nil, err
	}
	filter := query.Encode()

	key := DeriveKey(KeySpec{
		Category:    req.Category,
		SeedID:      req.SeedID,
		Filters:     req.ExtraFilters.Encode(),
		MaxEntities: maxEntities,
		Extension:   s.store.Extension(),
	})

	transform := TransformFor(req.Category, req.SeedID)

	return s.store.Load(ctx, key, func(ctx context.Context) (*domain.Table, error) {
		return s.fetcher.Fetch(ctx, req.Category, filter, maxEntities, transform)
	}, req.LoadOnlyColumns)
}

// resolveMax turns the request-level limit into the effective one. A nil
// request limit falls back to the service default; a non-positive value in
// either place means unbounded.
func (s *Service) resolveMax(requested *int) *int {
	limit := s.defaultMax
	if requested != nil {
		limit = *requested
	}
	if limit <= 0 {
		return nil
	}
	return &limit
}

// GetMultipleByID looks up entities of one category by ID list. With ordered
// set the result has one slot per input ID in input order, nil for unknown
// IDs.
func (s *Service) GetMultipleByID(ctx context.Context, category domain.Category, ids []string, ordered bool) ([]domain.Record, error) {
	if !category.Valid() {
		return nil, domain.NewConfigurationError(fmt.Sprintf("cannot look up entities of category %d", category))
	}
	return s.batch.ByIDs(ctx, category, ids, ordered)
}

// GetMultipleByIDAsTable is GetMultipleByID materialized as a table, with the
// category transform applied to each found record first.
func (s *Service) GetMultipleByIDAsTable(ctx context.Context, category domain.Category, ids []string, ordered bool) (*domain.Table, error) {
	records, err := s.GetMultipleByID(ctx, category, ids, ordered)
	if err != nil {
		return nil, err
	}
	return AsTable(records, TransformFor(category, ""))
}

// GetMultipleByDOI looks up works by DOI list. Matching ignores case and the
// https://doi.org/ prefix.
func (s *Service) GetMultipleByDOI(ctx context.Context, dois []string, ordered bool) ([]domain.Record, error) {
	return s.batch.ByDOIs(ctx, dois, ordered)
}

// GetMultipleByDOIAsTable is GetMultipleByDOI materialized as a table.
func (s *Service) GetMultipleByDOIAsTable(ctx context.Context, dois []string, ordered bool) (*domain.Table, error) {
	records, err := s.GetMultipleByDOI(ctx, dois, ordered)
	if err != nil {
		return nil, err
	}
	return AsTable(records, TransformFor(domain.CategoryWorks, ""))
}

// GetEntityName returns the display name of a single entity.
func (s *Service) GetEntityName(ctx context.Context, id string) (string, error) {
	record, err := s.client.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	name, _ := record["display_name"].(string)
	return name, nil
}

// GetEntityInfo returns a single entity's record, narrowed to fields when
// non-empty. Works additionally carry a computed author_citation_style field
// ("Doe", "Doe, Roe" or "Doe, Roe et al." depending on the number of
// authors).
func (s *Service) GetEntityInfo(ctx context.Context, id string, fields []string) (domain.Record, error) {
	record, err := s.client.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if category, err := domain.CategoryFromID(id); err == nil && category == domain.CategoryWorks {
		record["author_citation_style"] = authorCitation(record)
	}

	if len(fields) == 0 {
		return record, nil
	}
	selected := make(domain.Record, len(fields))
	for _, field := range fields {
		if value, ok := record[field]; ok {
			selected[field] = value
		}
	}
	return selected, nil
}

// authorCitation builds the compact author attribution used in citations.
func authorCitation(record domain.Record) string {
	authorships, _ := record["authorships"].([]any)

	var names []string
	for _, item := range authorships {
		authorship, ok := item.(map[string]any)
		if !ok {
			continue
		}
		author, ok := authorship["author"].(map[string]any)
		if !ok {
			continue
		}
		if name, ok := author["display_name"].(string); ok && name != "" {
			names = append(names, name)
		}
	}

	switch {
	case len(names) == 0:
		return ""
	case len(names) == 1:
		return names[0]
	case len(names) == 2:
		return strings.Join(names, ", ")
	default:
		return names[0] + ", " + names[1] + " et al."
	}
}

// EntityExists reports whether the entity is known to OpenAlex.
func (s *Service) EntityExists(ctx context.Context, id string) (bool, error) {
	_, err := s.client.GetByID(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// Progress returns the completion fraction of the current bulk fetch.
func (s *Service) Progress() float64 { return s.progress.Fraction() }

// ProgressText returns the human-readable status of the current bulk fetch.
func (s *Service) ProgressText() string { return s.progress.Text() }
