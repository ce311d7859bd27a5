package entities

import (
	"fmt"
	"sort"
	"strings"

	"github.com/scholarly/openalex-cache/internal/domain"
)

// TransformFunc reshapes a record in place before it is tabularized. An error
// means the record does not have the shape the category demands, which aborts
// the whole fetch rather than producing a silently malformed table.
type TransformFunc func(record domain.Record) error

// TransformFor returns the transform applied to records of the target
// category fetched for the given seed. Works get their inverted abstract
// index replaced by plain text; when the seed is a concept, works and
// institutions additionally get the seed's relevance score injected as a
// top-level column named after the seed ID.
func TransformFor(target domain.Category, seedID string) TransformFunc {
	seedIsConcept := false
	if seedID != "" {
		if cat, err := domain.CategoryFromID(seedID); err == nil && cat == domain.CategoryConcepts {
			seedIsConcept = true
		}
	}
	shortSeed := domain.ShortID(seedID)

	switch target {
	case domain.CategoryWorks:
		return func(record domain.Record) error {
			if err := reconstructAbstract(record); err != nil {
				return err
			}
			if seedIsConcept {
				return injectConceptScore(record, "concepts", shortSeed)
			}
			return nil
		}
	case domain.CategoryInstitutions:
		if seedIsConcept {
			return func(record domain.Record) error {
				return injectConceptScore(record, "x_concepts", shortSeed)
			}
		}
	}
	return nil
}

// reconstructAbstract replaces abstract_inverted_index with a plain abstract
// string. The inverted index maps each word to the positions it occupies in
// the abstract; inverting it recovers the original word order. The index is
// an order of magnitude larger than the text it encodes, so dropping it keeps
// cached works tables small. A work without an abstract is left untouched.
func reconstructAbstract(record domain.Record) error {
	raw, ok := record["abstract_inverted_index"]
	if !ok || raw == nil {
		return nil
	}

	index, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("abstract_inverted_index has type %T, expected an object", raw)
	}

	type placed struct {
		position int
		word     string
	}
	var words []placed
	for word, positions := range index {
		list, ok := positions.([]any)
		if !ok {
			return fmt.Errorf("abstract_inverted_index[%q] has type %T, expected an array", word, positions)
		}
		for _, p := range list {
			pos, ok := p.(float64)
			if !ok {
				return fmt.Errorf("abstract_inverted_index[%q] holds a %T, expected a number", word, p)
			}
			words = append(words, placed{position: int(pos), word: word})
		}
	}
	sort.Slice(words, func(i, j int) bool { return words[i].position < words[j].position })

	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w.word)
	}

	delete(record, "abstract_inverted_index")
	record["abstract"] = b.String()
	return nil
}

// injectConceptScore copies the seed concept's relevance score out of the
// record's concept association list into a top-level field named after the
// seed ID, so the normalized table carries it as a scalar column. A record
// not associated with the seed concept scores 0. A record missing the
// association list entirely does not belong to the expected category, which
// is fatal.
func injectConceptScore(record domain.Record, field, seedShortID string) error {
	raw, ok := record[field]
	if !ok {
		return fmt.Errorf("record %s has no %s field", record.ShortID(), field)
	}

	score := 0.0
	list, _ := raw.([]any)
	wantID := domain.OpenAlexIDPrefix + seedShortID
	for _, item := range list {
		concept, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if concept["id"] == wantID {
			if s, ok := concept["score"].(float64); ok {
				score = s
			}
			break
		}
	}

	record[seedShortID] = score
	return nil
}
