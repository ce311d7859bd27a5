package cache

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarly/openalex-cache/internal/domain"
)

// writeCacheFile creates a cache file of the given size with the given
// access time.
func writeCacheFile(t *testing.T, dir, name string, size int, access time.Time) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	require.NoError(t, os.Chtimes(path, access, access))
}

func remaining(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func newTestEvictor(limits Limits, diskPercent float64) *Evictor {
	e := NewEvictor(limits, "json.gz", zerolog.Nop(), nil)
	e.diskUsage = func(string) (float64, error) { return diskPercent, nil }
	return e
}

func TestEvictorFloorProtection(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeCacheFile(t, dir, "a.json.gz", 100, now.Add(-3*time.Hour))
	writeCacheFile(t, dir, "b.json.gz", 100, now.Add(-2*time.Hour))

	// Disk way over its ceiling, but the cache itself is below both floors.
	evictor := newTestEvictor(Limits{
		MaxStoragePercent: 50,
		MinFiles:          10,
		MinBytes:          1 << 20,
	}, 99)

	require.NoError(t, evictor.MaybeEvict(dir))
	assert.Equal(t, []string{"a.json.gz", "b.json.gz"}, remaining(t, dir))
}

func TestEvictorDeletesOldestAccessed(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeCacheFile(t, dir, "newest.json.gz", 100, now.Add(-1*time.Hour))
	writeCacheFile(t, dir, "middle.json.gz", 100, now.Add(-2*time.Hour))
	writeCacheFile(t, dir, "oldest.json.gz", 100, now.Add(-3*time.Hour))
	writeCacheFile(t, dir, "ancient.json.gz", 100, now.Add(-4*time.Hour))

	// MaxFiles 2 forces deletion of exactly the two least recently used.
	evictor := newTestEvictor(Limits{MaxFiles: 2, MinFiles: 1}, 0)

	require.NoError(t, evictor.MaybeEvict(dir))
	assert.Equal(t, []string{"middle.json.gz", "newest.json.gz"}, remaining(t, dir))
}

func TestEvictorSizeCeiling(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeCacheFile(t, dir, "big-old.json.gz", 600, now.Add(-3*time.Hour))
	writeCacheFile(t, dir, "small-new.json.gz", 200, now.Add(-1*time.Hour))

	evictor := newTestEvictor(Limits{MaxBytes: 500, MinFiles: 1}, 0)

	require.NoError(t, evictor.MaybeEvict(dir))
	assert.Equal(t, []string{"small-new.json.gz"}, remaining(t, dir))
}

func TestEvictorTieBreaksByName(t *testing.T) {
	dir := t.TempDir()
	shared := time.Now().Add(-2 * time.Hour)
	writeCacheFile(t, dir, "bbb.json.gz", 100, shared)
	writeCacheFile(t, dir, "aaa.json.gz", 100, shared)
	writeCacheFile(t, dir, "ccc.json.gz", 100, shared)

	evictor := newTestEvictor(Limits{MaxFiles: 2, MinFiles: 1}, 0)

	require.NoError(t, evictor.MaybeEvict(dir))
	assert.Equal(t, []string{"bbb.json.gz", "ccc.json.gz"}, remaining(t, dir))
}

func TestEvictorIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeCacheFile(t, dir, "victim.json.gz", 100, now.Add(-3*time.Hour))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0o644))

	evictor := newTestEvictor(Limits{MaxFiles: 0, MaxStoragePercent: 50, MinFiles: 0}, 99)

	err := evictor.MaybeEvict(dir)
	assert.ErrorIs(t, err, domain.ErrEvictionExhausted)
	assert.Equal(t, []string{"notes.txt"}, remaining(t, dir))
}

func TestEvictorExhaustion(t *testing.T) {
	dir := t.TempDir()
	writeCacheFile(t, dir, "only.json.gz", 100, time.Now().Add(-time.Hour))

	// Disk usage stays over the ceiling no matter what gets deleted.
	evictor := newTestEvictor(Limits{MaxStoragePercent: 50, MinFiles: 0}, 99)

	err := evictor.MaybeEvict(dir)
	require.ErrorIs(t, err, domain.ErrEvictionExhausted)

	var exhausted *domain.EvictionExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, dir, exhausted.Dir)
	assert.Empty(t, remaining(t, dir))
}

func TestEvictorMissingDirectory(t *testing.T) {
	evictor := newTestEvictor(Limits{MaxFiles: 1}, 0)
	assert.NoError(t, evictor.MaybeEvict(filepath.Join(t.TempDir(), "does-not-exist")))
}
