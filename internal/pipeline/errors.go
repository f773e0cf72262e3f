package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the pipeline.
var (
	// ErrDuplicateURL is returned by ContentStore.Insert when the URL is
	// already stored. Expected during dedup, never fatal.
	ErrDuplicateURL = errors.New("url already stored")

	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrMainContentUnmapped is returned when the workflow schema exposes no
	// variable the item's body can be mapped to. Dispatch fails closed before
	// any job record is created.
	ErrMainContentUnmapped = errors.New("main content field not mapped to workflow schema")
)

// PlatformError is a typed failure from the workflow platform API.
type PlatformError struct {
	StatusCode int
	Message    string
}

func (e *PlatformError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("platform error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("platform error: %s", e.Message)
}

// Transient reports whether the failure is worth retrying: network-level
// failures and 5xx/429 responses are transient, other 4xx are not.
func (e *PlatformError) Transient() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// DiscoveryError wraps a feed or page fetch failure for one discovery unit.
// The unit is skipped and the source fetch continues.
type DiscoveryError struct {
	URL string
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery failed for %s: %v", e.URL, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}
