package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/scholarly/openalex-cache/internal/domain"
	"github.com/scholarly/openalex-cache/internal/observability"
)

// StoreConfig configures the cache store.
type StoreConfig struct {
	// Dir is the cache directory. Created on first write if absent.
	Dir string

	// MaxAgeDays is the entry lifetime; entries older than this are
	// deleted and refetched on load. Zero or negative disables aging.
	MaxAgeDays int
}

// Store maps cache keys to persisted table files. Loads fall through to a
// caller-supplied fetch on miss or staleness; writes run eviction first and
// are atomic via a temp-file rename, so a crashed write never leaves a
// truncated entry behind.
type Store struct {
	dir     string
	maxAge  time.Duration
	codec   Codec
	evictor *Evictor
	logger  zerolog.Logger
	metrics *observability.Metrics

	// now is a clock hook for age tests.
	now func() time.Time
}

// NewStore creates a cache store using the given codec and evictor. The
// evictor may be nil to disable space management.
func NewStore(cfg StoreConfig, codec Codec, evictor *Evictor, logger zerolog.Logger, metrics *observability.Metrics) *Store {
	var maxAge time.Duration
	if cfg.MaxAgeDays > 0 {
		maxAge = time.Duration(cfg.MaxAgeDays) * 24 * time.Hour
	}
	return &Store{
		dir:     cfg.Dir,
		maxAge:  maxAge,
		codec:   codec,
		evictor: evictor,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Extension returns the file extension entries are written with.
func (s *Store) Extension() string { return s.codec.Extension() }

// Path returns the file path an entry with the given key lives at.
func (s *Store) Path(key string) string { return filepath.Join(s.dir, key) }

// tableFile is the persisted shape of a table.
type tableFile struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Load returns the table for key. A fresh cache entry is decoded and
// returned; a missing or expired entry triggers fetch, whose result is
// persisted before being returned. An entry that exists but cannot be
// decoded is replaced by an empty table rather than failing the load.
// onlyColumns, when non-empty, narrows the returned table; the persisted
// file keeps the full column set.
func (s *Store) Load(ctx context.Context, key string, fetch func(context.Context) (*domain.Table, error), onlyColumns []string) (*domain.Table, error) {
	path := s.Path(key)
	log := observability.WithCacheContext(s.logger, key)

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		log.Debug().Msg("cache miss")
		if s.metrics != nil {
			s.metrics.RecordCacheMiss()
		}
		return s.fetchAndPersist(ctx, key, fetch, onlyColumns)

	case err != nil:
		return nil, fmt.Errorf("statting cache entry: %w", err)

	case s.maxAge > 0 && s.now().Sub(info.ModTime()) > s.maxAge:
		log.Debug().Time("mtime", info.ModTime()).Msg("cache entry expired")
		if s.metrics != nil {
			s.metrics.RecordCacheStale()
		}
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("removing expired cache entry: %w", err)
		}
		return s.fetchAndPersist(ctx, key, fetch, onlyColumns)
	}

	if s.metrics != nil {
		s.metrics.RecordCacheHit()
	}

	table, err := s.Read(key)
	if err != nil {
		return s.degrade(log, err), nil
	}

	return s.project(log, table, onlyColumns), nil
}

// degrade substitutes an empty table for an entry that exists but cannot
// serve the requested read. A known benign case: the caller would rather
// work with no data than fail.
func (s *Store) degrade(log zerolog.Logger, err error) *domain.Table {
	log.Warn().Err(err).Msg("cache read degraded, substituting empty table")
	if s.metrics != nil {
		s.metrics.CacheReadDegraded.Inc()
	}
	return domain.NewTable(nil)
}

// Read decodes the entry at key without any fetch fallback. Decode failures
// come back as a CacheReadError. Reading bumps the entry's access time,
// which the evictor uses for its least-recently-accessed ordering.
func (s *Store) Read(key string) (*domain.Table, error) {
	path := s.Path(key)

	f, err := os.Open(path)
	if err != nil {
		return nil, domain.NewCacheReadError(path, err)
	}
	defer f.Close()

	r, err := s.codec.NewReader(f)
	if err != nil {
		return nil, domain.NewCacheReadError(path, err)
	}
	defer r.Close()

	var file tableFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, domain.NewCacheReadError(path, err)
	}

	s.touch(path)

	table := domain.NewTable(file.Columns)
	table.Rows = file.Rows
	return table, nil
}

// touch bumps the access time while preserving the modification time, so
// reads feed the eviction ordering without resetting age invalidation.
func (s *Store) touch(path string) {
	if info, err := os.Stat(path); err == nil {
		_ = os.Chtimes(path, s.now(), info.ModTime())
	}
}

// Persist writes the table under key. Eviction runs before the write so the
// new entry does not itself push the cache past a ceiling it could have
// avoided; an exhausted eviction pass is logged and the write proceeds.
func (s *Store) Persist(table *domain.Table, key string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	if s.evictor != nil {
		if err := s.evictor.MaybeEvict(s.dir); err != nil {
			s.logger.Warn().Err(err).Str("dir", s.dir).Msg("eviction could not satisfy cache ceilings")
		}
	}

	path := s.Path(key)
	tmp, err := os.CreateTemp(s.dir, key+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w, err := s.codec.NewWriter(tmp)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("opening codec writer: %w", err)
	}

	file := tableFile{Columns: table.Columns, Rows: table.Rows}
	if err := json.NewEncoder(w).Encode(file); err != nil {
		w.Close()
		tmp.Close()
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if err := w.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("flushing cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp cache file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publishing cache entry: %w", err)
	}

	if s.metrics != nil {
		if info, err := os.Stat(path); err == nil {
			s.metrics.RecordCacheWrite(int(info.Size()))
		}
	}

	s.logger.Debug().Str("cache_key", key).Int("rows", table.NumRows()).Msg("cache entry written")
	return nil
}

// fetchAndPersist runs the fetch and persists its result before returning
// it. A failed fetch writes nothing, leaving the cache directory untouched.
func (s *Store) fetchAndPersist(ctx context.Context, key string, fetch func(context.Context) (*domain.Table, error), onlyColumns []string) (*domain.Table, error) {
	table, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.Persist(table, key); err != nil {
		return nil, err
	}
	return s.project(observability.WithCacheContext(s.logger, key), table, onlyColumns), nil
}

// project narrows the table to onlyColumns when requested. A table that
// cannot provide the requested columns (a zero-match fetch persists no
// columns at all) degrades to an empty table rather than failing the load.
func (s *Store) project(log zerolog.Logger, table *domain.Table, onlyColumns []string) *domain.Table {
	if len(onlyColumns) == 0 {
		return table
	}
	projected, err := table.Project(onlyColumns)
	if err != nil {
		return s.degrade(log, err)
	}
	return projected
}
