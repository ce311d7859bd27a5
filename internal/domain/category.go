package domain

import (
	"strconv"
	"strings"
)

// Category identifies the kind of OpenAlex entity a record belongs to.
// The set is closed: every entity the API serves falls into exactly one
// category, and the first letter of an entity ID determines which.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryWorks
	CategoryAuthors
	CategorySources
	CategoryInstitutions
	CategoryTopics
	CategoryConcepts
	CategoryPublishers
)

// categoryNames maps each category to its API path segment, which doubles
// as the lowercase display name used in cache keys and filter fields.
var categoryNames = map[Category]string{
	CategoryWorks:        "works",
	CategoryAuthors:      "authors",
	CategorySources:      "sources",
	CategoryInstitutions: "institutions",
	CategoryTopics:       "topics",
	CategoryConcepts:     "concepts",
	CategoryPublishers:   "publishers",
}

// categoryPrefixes maps ID prefix letters to categories. Prefixes are
// case-sensitive: OpenAlex IDs always use the uppercase letter.
var categoryPrefixes = map[byte]Category{
	'W': CategoryWorks,
	'A': CategoryAuthors,
	'S': CategorySources,
	'I': CategoryInstitutions,
	'T': CategoryTopics,
	'C': CategoryConcepts,
	'P': CategoryPublishers,
}

// String returns the lowercase name of the category ("works", "authors", ...).
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// APIPath returns the URL path segment for the category's list endpoint.
func (c Category) APIPath() string {
	return c.String()
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

// CategoryFromID derives the category of an entity from its ID prefix
// letter. Full https://openalex.org/ URLs are accepted. An empty ID or an
// unrecognized prefix yields an InvalidIdentifierError.
func CategoryFromID(id string) (Category, error) {
	short := ShortID(id)
	if short == "" {
		return CategoryUnknown, NewInvalidIdentifierError(id)
	}
	category, ok := categoryPrefixes[short[0]]
	if !ok {
		return CategoryUnknown, NewInvalidIdentifierError(id)
	}
	return category, nil
}

// ParseCategory resolves a category from its name, ignoring case and
// surrounding whitespace. Unknown names yield a ConfigurationError.
func ParseCategory(name string) (Category, error) {
	trimmed := strings.ToLower(strings.TrimSpace(name))
	for category, categoryName := range categoryNames {
		if categoryName == trimmed {
			return category, nil
		}
	}
	return CategoryUnknown, NewConfigurationError("unknown entity category " + strconv.Quote(name))
}
