// Package cache implements the bounded on-disk table cache: compressed
// columnar persistence keyed by derived file names, age-based invalidation,
// and multi-criteria eviction of least-recently-accessed entries.
package cache

import (
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Codec is a streaming compression codec for cache files. Implementations
// must be safe for concurrent use; the writers and readers they produce are
// single-use.
type Codec interface {
	// Name is the codec's configuration name.
	Name() string

	// Extension is the cache file extension without the leading dot.
	Extension() string

	// NewWriter wraps w with a compressing writer. The writer must be
	// closed to flush trailing frames.
	NewWriter(w io.Writer) (io.WriteCloser, error)

	// NewReader wraps r with a decompressing reader.
	NewReader(r io.Reader) (io.ReadCloser, error)
}

// CodecByName resolves a configuration codec name. Supported names are
// "gzip" and "zstd".
func CodecByName(name string) (Codec, error) {
	switch name {
	case "gzip", "":
		return GzipCodec{}, nil
	case "zstd":
		return ZstdCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported cache codec %q", name)
	}
}

// GzipCodec compresses cache files with gzip. It is the default codec:
// slower than zstd but universally readable.
type GzipCodec struct{}

func (GzipCodec) Name() string      { return "gzip" }
func (GzipCodec) Extension() string { return "json.gz" }

func (GzipCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriter(w), nil
}

func (GzipCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

// ZstdCodec compresses cache files with zstandard, trading a newer format
// for much faster decompression on large works tables.
type ZstdCodec struct{}

func (ZstdCodec) Name() string      { return "zstd" }
func (ZstdCodec) Extension() string { return "json.zst" }

func (ZstdCodec) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w)
}

func (ZstdCodec) NewReader(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return dec.IOReadCloser(), nil
}
