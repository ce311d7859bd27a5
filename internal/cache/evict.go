package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/disk"

	"github.com/scholarly/openalex-cache/internal/domain"
	"github.com/scholarly/openalex-cache/internal/observability"
)

// Limits holds the eviction floors and ceilings. Floors protect small caches
// from being wiped when the host disk fills up for unrelated reasons: no
// entry is ever deleted while both file count and total size sit at or below
// their minimums. Ceilings trigger eviction once a floor is exceeded.
type Limits struct {
	// MaxStoragePercent is the disk-used-percent ceiling for the volume
	// holding the cache directory. Zero disables this ceiling.
	MaxStoragePercent float64

	// MaxFiles is the cache file count ceiling. Zero disables it.
	MaxFiles int

	// MaxBytes is the total cache size ceiling in bytes. Zero disables it.
	MaxBytes int64

	// MinFiles is the file count floor.
	MinFiles int

	// MinBytes is the total size floor in bytes.
	MinBytes int64
}

// Evictor frees cache space by deleting least-recently-accessed entries.
// Ties on access time break lexicographically by file name, so eviction
// order does not depend on directory iteration order.
type Evictor struct {
	limits    Limits
	extension string
	logger    zerolog.Logger
	metrics   *observability.Metrics

	// diskUsage returns the used percentage of the volume at path.
	// Overridable in tests.
	diskUsage func(path string) (float64, error)
}

// NewEvictor creates an evictor deleting files with the given extension
// (without the leading dot).
func NewEvictor(limits Limits, extension string, logger zerolog.Logger, metrics *observability.Metrics) *Evictor {
	return &Evictor{
		limits:    limits,
		extension: extension,
		logger:    logger,
		metrics:   metrics,
		diskUsage: func(path string) (float64, error) {
			usage, err := disk.Usage(path)
			if err != nil {
				return 0, err
			}
			return usage.UsedPercent, nil
		},
	}
}

// entry is one cache file considered for eviction.
type entry struct {
	name   string
	size   int64
	access time.Time
}

// MaybeEvict deletes least-recently-accessed cache files from dir until no
// ceiling is exceeded. It does nothing while the cache sits below both
// floors. If every deletable file is gone and a ceiling still holds, it
// returns an EvictionExhaustedError; callers treat that as a warning, not a
// failure.
func (e *Evictor) MaybeEvict(dir string) error {
	entries, err := e.scan(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("scanning cache directory: %w", err)
	}

	count := len(entries)
	var total int64
	for _, en := range entries {
		total += en.size
	}

	if count <= e.limits.MinFiles && total <= e.limits.MinBytes {
		return nil
	}

	// Oldest access first; name breaks ties.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].access.Equal(entries[j].access) {
			return entries[i].name < entries[j].name
		}
		return entries[i].access.Before(entries[j].access)
	})

	for {
		exceeded, err := e.ceilingExceeded(dir, count, total)
		if err != nil {
			return err
		}
		if !exceeded {
			return nil
		}
		if len(entries) == 0 {
			diskPercent, _ := e.diskUsage(dir)
			if e.metrics != nil {
				e.metrics.EvictionExhausted.Inc()
			}
			return domain.NewEvictionExhaustedError(dir, diskPercent)
		}

		victim := entries[0]
		entries = entries[1:]

		path := filepath.Join(dir, victim.name)
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("evicting %s: %w", victim.name, err)
		}
		count--
		total -= victim.size

		e.logger.Info().
			Str("file", victim.name).
			Int64("bytes", victim.size).
			Time("last_access", victim.access).
			Msg("evicted cache entry")
		if e.metrics != nil {
			e.metrics.RecordEviction(victim.size)
		}
	}
}

// scan lists the cache files in dir with their sizes and access times.
func (e *Evictor) scan(dir string) ([]entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	suffix := "." + e.extension
	entries := make([]entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), suffix) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		entries = append(entries, entry{
			name:   de.Name(),
			size:   info.Size(),
			access: accessTime(info),
		})
	}
	return entries, nil
}

// ceilingExceeded reports whether any configured ceiling currently holds.
func (e *Evictor) ceilingExceeded(dir string, count int, total int64) (bool, error) {
	if e.limits.MaxFiles > 0 && count > e.limits.MaxFiles {
		return true, nil
	}
	if e.limits.MaxBytes > 0 && total > e.limits.MaxBytes {
		return true, nil
	}
	if e.limits.MaxStoragePercent > 0 {
		percent, err := e.diskUsage(dir)
		if err != nil {
			return false, fmt.Errorf("reading disk usage: %w", err)
		}
		if percent > e.limits.MaxStoragePercent {
			return true, nil
		}
	}
	return false, nil
}
