// Package errors provides centralized error definitions for the bridge.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Delivery errors.
var (
	// ErrTopicClosed indicates the target forum topic is closed or deleted.
	// The engine falls back to the group's default destination exactly once.
	ErrTopicClosed = errors.New("topic closed or invalid")

	// ErrRateLimited indicates Telegram asked to slow down. Retried with backoff.
	ErrRateLimited = errors.New("rate limited")

	// ErrTransient indicates a timeout or transient network failure. Retried with backoff.
	ErrTransient = errors.New("transient send failure")

	// ErrPermanent indicates a malformed or unauthorized request. Never retried.
	ErrPermanent = errors.New("permanent send failure")
)

// Media errors.
var (
	// ErrFetchFailed indicates source media could not be downloaded.
	ErrFetchFailed = errors.New("media fetch failed")

	// ErrUnexpectedStatus indicates a non-2xx HTTP response.
	ErrUnexpectedStatus = errors.New("unexpected http status")

	// ErrNoMediaResolved indicates a host page yielded no direct media URL.
	ErrNoMediaResolved = errors.New("no media url resolved")
)

// Reddit API errors.
var (
	// ErrSubmissionNotFound indicates the submission does not exist or is inaccessible.
	ErrSubmissionNotFound = errors.New("submission not found")

	// ErrAuthFailed indicates the OAuth token request was rejected.
	ErrAuthFailed = errors.New("reddit authentication failed")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
