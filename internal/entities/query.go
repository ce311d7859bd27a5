// Package entities implements the caching retrieval layer on top of the
// OpenAlex client: building seed-scoped filter queries, deriving stable
// cache keys, bulk fetching with progress reporting, normalizing records
// into tables, and batched point lookups.
package entities

import (
	"fmt"
	"sort"
	"strings"

	"github.com/scholarly/openalex-cache/internal/domain"
)

// FetchQuery is a nested filter specification. Top-level keys are OpenAlex
// filter fields; a string value is used directly, a nested map is flattened
// into dotted field paths when encoded ("affiliations" -> {"institution":
// {"id": "I123"}} encodes as "affiliations.institution.id:I123").
type FetchQuery map[string]any

// Encode renders the query as a canonical OpenAlex filter expression.
// Clauses are sorted lexicographically by field path so that two queries
// with the same content always encode identically, which keeps derived
// cache keys stable.
func (q FetchQuery) Encode() string {
	if len(q) == 0 {
		return ""
	}

	clauses := make([]string, 0, len(q))
	flattenQuery("", q, &clauses)
	sort.Strings(clauses)
	return strings.Join(clauses, ",")
}

// flattenQuery walks the nested query, joining keys with dots and emitting
// one "path:value" clause per leaf.
func flattenQuery(prefix string, node map[string]any, out *[]string) {
	for key, value := range node {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		switch v := value.(type) {
		case map[string]any:
			flattenQuery(path, v, out)
		case FetchQuery:
			flattenQuery(path, map[string]any(v), out)
		default:
			*out = append(*out, fmt.Sprintf("%s:%v", path, v))
		}
	}
}

// Merge returns a copy of q with the top-level keys of extra laid over it.
// Keys present in extra win, so callers can override the seed-derived filter.
func (q FetchQuery) Merge(extra FetchQuery) FetchQuery {
	merged := make(FetchQuery, len(q)+len(extra))
	for k, v := range q {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

// BuildQuery constructs the filter query that selects entities of the target
// category associated with the given seed entity. The general rule filters
// on "<seed-category>.id"; a few category pairs use a different field:
//
//   - Institutions from a Concepts seed filter on x_concepts.id, because
//     institution records carry their concept associations there.
//   - Anything from an Authors seed filters on author.id.
//   - Authors from an Institutions seed filter on
//     affiliations.institution.id.
//
// extraFilters, if non-nil, is merged over the derived query with its keys
// winning, and a nil seed yields just the extra filters (or an empty query).
func BuildQuery(target domain.Category, seedID string, extraFilters FetchQuery) (FetchQuery, error) {
	if !target.Valid() {
		return nil, domain.NewConfigurationError(fmt.Sprintf("cannot build a query for target category %d", target))
	}

	if seedID == "" {
		if extraFilters == nil {
			return FetchQuery{}, nil
		}
		return FetchQuery{}.Merge(extraFilters), nil
	}

	seedCategory, err := domain.CategoryFromID(seedID)
	if err != nil {
		return nil, err
	}
	shortID := domain.ShortID(seedID)

	var query FetchQuery
	switch {
	case target == domain.CategoryInstitutions && seedCategory == domain.CategoryConcepts:
		query = FetchQuery{"x_concepts": FetchQuery{"id": shortID}}
	case seedCategory == domain.CategoryAuthors:
		query = FetchQuery{"author": FetchQuery{"id": shortID}}
	case target == domain.CategoryAuthors && seedCategory == domain.CategoryInstitutions:
		query = FetchQuery{"affiliations": FetchQuery{"institution": FetchQuery{"id": shortID}}}
	default:
		query = FetchQuery{seedCategory.String(): FetchQuery{"id": shortID}}
	}

	if extraFilters != nil {
		query = query.Merge(extraFilters)
	}
	return query, nil
}
