package domain

import "strings"

const (
	// OpenAlexIDPrefix is the URL prefix OpenAlex uses for entity IDs.
	OpenAlexIDPrefix = "https://openalex.org/"

	// DOIPrefix is the URL prefix OpenAlex uses for DOIs.
	DOIPrefix = "https://doi.org/"
)

// Record is one entity as returned by the OpenAlex API: an opaque nested
// key-value structure. Records are transient; they are consumed into a Table
// during fetch and then discarded.
type Record map[string]any

// ID returns the record's identifier field as returned by the API
// (usually the full https://openalex.org/ URL), or "" when absent.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// ShortID returns the record's identifier with the network-location prefix
// stripped (e.g. "W2741809807").
func (r Record) ShortID() string {
	return ShortID(r.ID())
}

// DOI returns the record's DOI normalized for case-insensitive matching:
// URL prefix stripped and lower-cased. Returns "" when absent.
func (r Record) DOI() string {
	doi, _ := r["doi"].(string)
	return NormalizeDOI(doi)
}

// ShortID strips the OpenAlex URL prefix from an entity identifier.
func ShortID(id string) string {
	return strings.TrimSpace(strings.TrimPrefix(id, OpenAlexIDPrefix))
}

// NormalizeDOI strips the doi.org URL prefix from a DOI and lower-cases it.
// DOIs are case-insensitive, so all matching is done on the lowercase form.
func NormalizeDOI(doi string) string {
	if doi == "" {
		return ""
	}
	doi = strings.TrimSpace(doi)
	doi = strings.TrimPrefix(doi, DOIPrefix)
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	doi = strings.TrimPrefix(doi, "doi:")
	return strings.ToLower(strings.TrimSpace(doi))
}
