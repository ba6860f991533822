package errors

import (
	stdErrors "errors"
	"fmt"
)

// FatalLoadError means the input record collection is missing or malformed.
// The run cannot proceed and no output is written.
type FatalLoadError struct {
	Path string
	Err  error
}

func (e *FatalLoadError) Error() string {
	return fmt.Sprintf("cannot load records from %s: %v", e.Path, e.Err)
}

func (e *FatalLoadError) Unwrap() error {
	return e.Err
}

// NewFatalLoadError creates a FatalLoadError for path
func NewFatalLoadError(path string, err error) *FatalLoadError {
	return &FatalLoadError{Path: path, Err: err}
}

// IsFatalLoadError reports whether err is a FatalLoadError (even when wrapped).
func IsFatalLoadError(err error) bool {
	var loadErr *FatalLoadError
	return stdErrors.As(err, &loadErr)
}

// CacheCorruptionError reports an unreadable cache. Callers recover by
// starting from an empty cache.
type CacheCorruptionError struct {
	Path string
	Err  error
}

func (e *CacheCorruptionError) Error() string {
	return fmt.Sprintf("cache %s is unreadable: %v", e.Path, e.Err)
}

func (e *CacheCorruptionError) Unwrap() error {
	return e.Err
}

// NewCacheCorruptionError creates a CacheCorruptionError for path
func NewCacheCorruptionError(path string, err error) *CacheCorruptionError {
	return &CacheCorruptionError{Path: path, Err: err}
}

// IsCacheCorruptionError reports whether err is a CacheCorruptionError
func IsCacheCorruptionError(err error) bool {
	var cacheErr *CacheCorruptionError
	return stdErrors.As(err, &cacheErr)
}

// ConfigError is a fatal configuration problem found before any record is processed
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError wraps err as a ConfigError
func NewConfigError(err error) *ConfigError {
	return &ConfigError{Err: err}
}

// IsConfigError reports whether err is a ConfigError
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return stdErrors.As(err, &cfgErr)
}
