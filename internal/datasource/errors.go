package datasource

import (
	"errors"
	"fmt"
)

// ErrFetchFailed matches every error returned by a Fetcher.
var ErrFetchFailed = errors.New("fetch failed")

// FetchError describes why a series could not be retrieved.
type FetchError struct {
	SourceID string
	Reason   string
	Err      error
	// Temporary marks upstream outages: transport failures and 5xx answers.
	Temporary bool
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.SourceID, e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.SourceID, e.Reason)
}

// Unwrap exposes both ErrFetchFailed and the underlying cause.
func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFetchFailed}
	}
	return []error{ErrFetchFailed, e.Err}
}

func fetchError(sourceID, reason string, err error) *FetchError {
	return &FetchError{SourceID: sourceID, Reason: reason, Err: err}
}
