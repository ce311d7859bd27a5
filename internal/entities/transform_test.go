package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarly/openalex-cache/internal/domain"
)

func TestReconstructAbstract(t *testing.T) {
	t.Run("inverts the index into reading order", func(t *testing.T) {
		record := domain.Record{
			"id": "https://openalex.org/W1",
			"abstract_inverted_index": map[string]any{
				"caching":  []any{float64(2)},
				"Entity":   []any{float64(0)},
				"data":     []any{float64(1), float64(4)},
				"requires": []any{float64(3)},
			},
		}

		transform := TransformFor(domain.CategoryWorks, "")
		require.NotNil(t, transform)
		require.NoError(t, transform(record))

		assert.Equal(t, "Entity data caching requires data", record["abstract"])
		assert.NotContains(t, record, "abstract_inverted_index")
	})

	t.Run("work without abstract passes through", func(t *testing.T) {
		record := domain.Record{"id": "https://openalex.org/W2", "abstract_inverted_index": nil}

		transform := TransformFor(domain.CategoryWorks, "")
		require.NoError(t, transform(record))
		assert.NotContains(t, record, "abstract")
	})

	t.Run("malformed index is fatal", func(t *testing.T) {
		record := domain.Record{"abstract_inverted_index": "not an object"}

		transform := TransformFor(domain.CategoryWorks, "")
		assert.Error(t, transform(record))
	})
}

func TestInjectConceptScore(t *testing.T) {
	t.Run("works fetched for a concept seed carry its score", func(t *testing.T) {
		record := domain.Record{
			"id": "https://openalex.org/W1",
			"concepts": []any{
				map[string]any{"id": "https://openalex.org/C999", "score": 0.9},
				map[string]any{"id": "https://openalex.org/C2778407487", "score": 0.42},
			},
		}

		transform := TransformFor(domain.CategoryWorks, "C2778407487")
		require.NoError(t, transform(record))
		assert.Equal(t, 0.42, record["C2778407487"])
	})

	t.Run("missing association scores zero", func(t *testing.T) {
		record := domain.Record{
			"id":       "https://openalex.org/W2",
			"concepts": []any{map[string]any{"id": "https://openalex.org/C999", "score": 0.9}},
		}

		transform := TransformFor(domain.CategoryWorks, "C2778407487")
		require.NoError(t, transform(record))
		assert.Equal(t, 0.0, record["C2778407487"])
	})

	t.Run("institutions use x_concepts", func(t *testing.T) {
		record := domain.Record{
			"id": "https://openalex.org/I1",
			"x_concepts": []any{
				map[string]any{"id": "https://openalex.org/C2778407487", "score": 61.2},
			},
		}

		transform := TransformFor(domain.CategoryInstitutions, "C2778407487")
		require.NotNil(t, transform)
		require.NoError(t, transform(record))
		assert.Equal(t, 61.2, record["C2778407487"])
	})

	t.Run("record without the association list is a schema mismatch", func(t *testing.T) {
		record := domain.Record{"id": "https://openalex.org/W3"}

		transform := TransformFor(domain.CategoryWorks, "C2778407487")
		assert.Error(t, transform(record))
	})
}

func TestTransformForPassThroughCategories(t *testing.T) {
	assert.Nil(t, TransformFor(domain.CategoryAuthors, ""))
	assert.Nil(t, TransformFor(domain.CategoryInstitutions, "I27837315"))
	assert.Nil(t, TransformFor(domain.CategorySources, "C2778407487"))
}
