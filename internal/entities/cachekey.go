package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"

	"github.com/scholarly/openalex-cache/internal/domain"
)

// FormatVersion tags cache file names with the on-disk table format. Bumping
// it orphans every previously written file, which the evictor then reclaims.
const FormatVersion = "v1"

// maxKeyStem is the length beyond which a key stem is compressed into a
// hash-suffixed form, keeping file names within common filesystem limits.
const maxKeyStem = 96

// hashPrefixLen is how much of the readable stem survives compression.
const hashPrefixLen = 39

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// KeySpec describes one cacheable fetch for key derivation.
type KeySpec struct {
	// Category is the target entity category.
	Category domain.Category

	// SeedID is the seed entity ID, or empty for an unscoped fetch.
	SeedID string

	// Filters is the encoded extra-filter expression, or empty.
	Filters string

	// MaxEntities caps the fetch; nil means unbounded.
	MaxEntities *int

	// Extension is the file extension without the dot, e.g. "json.gz".
	Extension string
}

// DeriveKey produces the cache file name for a fetch. Equal fetch parameters
// always derive the same name. The readable stem is built from the category,
// seed and filters; stems longer than maxKeyStem are compressed to a short
// readable prefix plus a SHA-224 digest of the full stem, so distinct long
// parameter sets cannot collide on a shared prefix.
func DeriveKey(spec KeySpec) string {
	stem := spec.Category.String()

	if spec.SeedID != "" {
		stem += "_from_" + domain.ShortID(spec.SeedID)
	}
	if spec.Filters != "" {
		stem += "_" + unsafeKeyChars.ReplaceAllString(spec.Filters, "_")
	}
	stem += "_" + FormatVersion

	if len(stem) > maxKeyStem {
		digest := sha256.Sum224([]byte(stem))
		stem = stem[:hashPrefixLen] + "-" + hex.EncodeToString(digest[:])
	}

	limit := "none"
	if spec.MaxEntities != nil {
		limit = strconv.Itoa(*spec.MaxEntities)
	}
	return stem + "_max_" + limit + "." + spec.Extension
}
