package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrInvalidIdentifier indicates an entity ID with no recognizable
	// category prefix. Caller bug; never retried.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrConfiguration indicates a request that cannot be translated into a
	// remote API query. Caller bug; never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrFetchFailed indicates a remote API call that failed after the
	// configured retry budget.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrCacheReadDegraded indicates a persisted cache file that exists but
	// could not be parsed into the expected shape. Recovered locally by
	// substituting an empty table.
	ErrCacheReadDegraded = errors.New("cache read degraded")

	// ErrEvictionExhausted indicates that eviction could not bring usage
	// under the configured ceilings because no cache files remain to delete.
	// Logged as a warning, never fatal.
	ErrEvictionExhausted = errors.New("eviction exhausted")

	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")
)

// InvalidIdentifierError reports an entity ID whose prefix maps to no category.
type InvalidIdentifierError struct {
	ID string
}

// Error implements the error interface.
func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("entity id %q is not valid", e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *InvalidIdentifierError) Unwrap() error {
	return ErrInvalidIdentifier
}

// ConfigurationError reports a request that cannot be resolved into an API query.
type ConfigurationError struct {
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// FetchError reports a remote call that failed after the retry budget.
type FetchError struct {
	Op    string
	Cause error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed during %s: %v", e.Op, e.Cause)
}

// Unwrap returns the sentinel and the cause so callers can match either
// with errors.Is.
func (e *FetchError) Unwrap() []error {
	return []error{ErrFetchFailed, e.Cause}
}

// CacheReadError reports a persisted cache entry that could not be read back.
type CacheReadError struct {
	Path  string
	Cause error
}

// Error implements the error interface.
func (e *CacheReadError) Error() string {
	return fmt.Sprintf("cache entry %s unreadable: %v", e.Path, e.Cause)
}

// Unwrap returns the sentinel and the cause so callers can match either
// with errors.Is.
func (e *CacheReadError) Unwrap() []error {
	return []error{ErrCacheReadDegraded, e.Cause}
}

// EvictionExhaustedError reports ceilings still exceeded after deleting every
// cache file.
type EvictionExhaustedError struct {
	Dir         string
	DiskPercent float64
}

// Error implements the error interface.
func (e *EvictionExhaustedError) Error() string {
	return fmt.Sprintf("no more cache files to delete in %s (disk at %.1f%%)", e.Dir, e.DiskPercent)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *EvictionExhaustedError) Unwrap() error {
	return ErrEvictionExhausted
}

// NotFoundError provides details about a not found entity.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ExternalAPIError provides details about an OpenAlex API error response.
type ExternalAPIError struct {
	Source     string
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *ExternalAPIError) Unwrap() error {
	return e.Cause
}

// NewInvalidIdentifierError creates a new InvalidIdentifierError.
func NewInvalidIdentifierError(id string) *InvalidIdentifierError {
	return &InvalidIdentifierError{ID: id}
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(reason string) *ConfigurationError {
	return &ConfigurationError{Reason: reason}
}

// NewFetchError creates a new FetchError.
func NewFetchError(op string, cause error) *FetchError {
	return &FetchError{Op: op, Cause: cause}
}

// NewCacheReadError creates a new CacheReadError.
func NewCacheReadError(path string, cause error) *CacheReadError {
	return &CacheReadError{Path: path, Cause: cause}
}

// NewEvictionExhaustedError creates a new EvictionExhaustedError.
func NewEvictionExhaustedError(dir string, diskPercent float64) *EvictionExhaustedError {
	return &EvictionExhaustedError{Dir: dir, DiskPercent: diskPercent}
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// NewExternalAPIError creates a new ExternalAPIError.
func NewExternalAPIError(source string, statusCode int, message string, cause error) *ExternalAPIError {
	return &ExternalAPIError{
		Source:     source,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}
