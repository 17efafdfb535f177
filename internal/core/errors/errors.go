// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - Unexported errors (err*): Use for internal package errors
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Fetch errors.
var (
	// ErrTransientFetch indicates a network or upstream failure the caller may retry.
	ErrTransientFetch = errors.New("transient fetch failure")

	// ErrNotFound is a generic not found error.
	ErrNotFound = errors.New("not found")
)

// Formatting errors.
var (
	// ErrFormatterSkip indicates a single digest entry could not be formatted and is omitted.
	ErrFormatterSkip = errors.New("entry skipped")
)

// Configuration errors.
var (
	// ErrConfig indicates an invalid action or global configuration.
	ErrConfig = errors.New("invalid configuration")

	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = errors.New("invalid input")
)

// Publication errors.
var (
	// ErrPublish is the parent of every error caused by a malformed post.
	ErrPublish = errors.New("publish failed")

	// ErrTextTooLong indicates the post exceeds the Mastodon length cap.
	ErrTextTooLong = errors.New("text is too long")

	// ErrDirectWithoutMention indicates a direct message that mentions nobody.
	ErrDirectWithoutMention = errors.New("direct message without a mention")

	// ErrUploadFailed indicates a media upload failed after its retry.
	ErrUploadFailed = errors.New("media upload failed")
)

// Cache errors.
var (
	// ErrCacheNotFound indicates a cache entry was not found.
	ErrCacheNotFound = errors.New("cache entry not found")

	// ErrCacheExpired indicates a cache entry has expired.
	ErrCacheExpired = errors.New("cache entry expired")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
