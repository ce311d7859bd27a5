package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryFromID(t *testing.T) {
	t.Run("maps prefix letters to categories", func(t *testing.T) {
		cases := map[string]Category{
			"W2741809807": CategoryWorks,
			"A5023888391": CategoryAuthors,
			"S137773608":  CategorySources,
			"I27837315":   CategoryInstitutions,
			"T10102":      CategoryTopics,
			"C71924100":   CategoryConcepts,
			"P4310319965": CategoryPublishers,
		}
		for id, want := range cases {
			got, err := CategoryFromID(id)
			require.NoError(t, err, id)
			assert.Equal(t, want, got, id)
		}
	})

	t.Run("accepts full OpenAlex URLs", func(t *testing.T) {
		got, err := CategoryFromID("https://openalex.org/W2741809807")
		require.NoError(t, err)
		assert.Equal(t, CategoryWorks, got)
	})

	t.Run("rejects unknown prefix", func(t *testing.T) {
		_, err := CategoryFromID("X123")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidIdentifier)

		var invErr *InvalidIdentifierError
		require.True(t, errors.As(err, &invErr))
		assert.Equal(t, "X123", invErr.ID)
	})

	t.Run("rejects lowercase prefix", func(t *testing.T) {
		_, err := CategoryFromID("w2741809807")
		assert.ErrorIs(t, err, ErrInvalidIdentifier)
	})

	t.Run("rejects empty id", func(t *testing.T) {
		_, err := CategoryFromID("")
		assert.ErrorIs(t, err, ErrInvalidIdentifier)
	})
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "works", CategoryWorks.String())
	assert.Equal(t, "institutions", CategoryInstitutions.String())
	assert.Equal(t, "publishers", CategoryPublishers.String())
	assert.Equal(t, "unknown", CategoryUnknown.String())
}

func TestParseCategory(t *testing.T) {
	t.Run("parses known names", func(t *testing.T) {
		got, err := ParseCategory("Works")
		require.NoError(t, err)
		assert.Equal(t, CategoryWorks, got)

		got, err = ParseCategory(" concepts ")
		require.NoError(t, err)
		assert.Equal(t, CategoryConcepts, got)
	})

	t.Run("rejects unknown names", func(t *testing.T) {
		_, err := ParseCategory("journals")
		assert.ErrorIs(t, err, ErrConfiguration)
	})
}

func TestNormalizeDOI(t *testing.T) {
	assert.Equal(t, "10.1038/nature12373", NormalizeDOI("https://doi.org/10.1038/NATURE12373"))
	assert.Equal(t, "10.1038/nature12373", NormalizeDOI("doi:10.1038/nature12373"))
	assert.Equal(t, "", NormalizeDOI(""))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "W42", ShortID("https://openalex.org/W42"))
	assert.Equal(t, "W42", ShortID("W42"))
}
