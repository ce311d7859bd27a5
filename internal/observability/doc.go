// Package observability provides logging and metrics support for the
// entity cache service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for fetches, cache traffic and eviction
//   - Context helpers for propagating request identifiers
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("cache_key", key).Msg("cache entry written")
//
// Add fetch context to a logger:
//
//	logger = observability.WithFetchContext(logger, "works", seedID)
//
// # Metrics
//
// Initialize and record metrics:
//
//	metrics := observability.NewMetrics("openalex_cache")
//	metrics.RecordCacheHit()
//	metrics.APIRequests.WithLabelValues("page").Inc()
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - request_id: HTTP request identifier
//   - category: Entity category (works, authors, ...)
//   - seed_id: Seed entity identifier scoping a fetch
//   - cache_key: Cache file name for one fetch
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
