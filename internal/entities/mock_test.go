package entities

import (
	"context"
	"fmt"

	"github.com/scholarly/openalex-cache/internal/domain"
)

// mockClient implements APIClient with canned data and call counters.
type mockClient struct {
	// records is the full result set paged out by Page, in order.
	records []domain.Record

	// byID serves GetByID; missing keys yield NotFoundError.
	byID map[string]domain.Record

	// batches records each value set passed to FilterByIDSet;
	// batchPerPages records the page size of each call.
	batches       [][]string
	batchPerPages []int

	// batchResults serves FilterByIDSet, one slice per call, cycled from
	// the front. When empty, records whose normalized key is in the
	// requested value set are returned instead.
	batchResults [][]domain.Record

	countCalls int
	pageCalls  int
	lastFilter string

	countErr error
	pageErr  error
	// pageErrAfter makes Page fail only from the Nth call (1-based).
	pageErrAfter int
	batchErr     error
}

func (m *mockClient) Count(ctx context.Context, category domain.Category, filter string) (int, error) {
	m.countCalls++
	m.lastFilter = filter
	if m.countErr != nil {
		return 0, m.countErr
	}
	return len(m.records), nil
}

func (m *mockClient) Page(ctx context.Context, category domain.Category, filter string, perPage int, cursor string) ([]domain.Record, string, error) {
	m.pageCalls++
	if m.pageErr != nil && (m.pageErrAfter == 0 || m.pageCalls >= m.pageErrAfter) {
		return nil, "", m.pageErr
	}

	offset := 0
	if cursor != "*" {
		if _, err := fmt.Sscanf(cursor, "offset-%d", &offset); err != nil {
			return nil, "", fmt.Errorf("bad cursor %q", cursor)
		}
	}

	end := offset + perPage
	if end > len(m.records) {
		end = len(m.records)
	}

	next := ""
	if end < len(m.records) {
		next = fmt.Sprintf("offset-%d", end)
	}
	return m.records[offset:end], next, nil
}

func (m *mockClient) GetByID(ctx context.Context, id string) (domain.Record, error) {
	category, err := domain.CategoryFromID(id)
	if err != nil {
		return nil, err
	}
	record, ok := m.byID[domain.ShortID(id)]
	if !ok {
		return nil, domain.NewNotFoundError(category.String(), id)
	}
	return record, nil
}

func (m *mockClient) FilterByIDSet(ctx context.Context, category domain.Category, filterField string, values []string, perPage int) ([]domain.Record, error) {
	m.batches = append(m.batches, values)
	m.batchPerPages = append(m.batchPerPages, perPage)
	if m.batchErr != nil {
		return nil, m.batchErr
	}

	if len(m.batchResults) > 0 {
		result := m.batchResults[0]
		m.batchResults = m.batchResults[1:]
		return result, nil
	}

	requested := make(map[string]bool, len(values))
	for _, v := range values {
		requested[v] = true
	}
	var out []domain.Record
	for _, record := range m.records {
		if requested[record.ShortID()] || requested[domain.NormalizeDOI(record.DOI())] {
			out = append(out, record)
		}
	}
	return out, nil
}
