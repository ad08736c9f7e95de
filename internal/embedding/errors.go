package embedding

import (
	"errors"
	"fmt"
)

// ErrProvider matches every *ProviderError via errors.Is.
var ErrProvider = errors.New("embedding provider error")

// ErrorKind classifies provider failures.
type ErrorKind string

const (
	KindNetwork     ErrorKind = "network"
	KindAuth        ErrorKind = "auth"
	KindRateLimit   ErrorKind = "rate_limit"
	KindQuota       ErrorKind = "quota"
	KindBadRequest  ErrorKind = "bad_request"
	KindDecode      ErrorKind = "decode"
	KindUnavailable ErrorKind = "unavailable"
)

// ProviderError is a failed provider call.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is reports ErrProvider as a match.
func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// BatchError names the batch whose provider call failed. Start and End are
// the half-open item range of the batch.
type BatchError struct {
	Batch int
	Total int
	Start int
	End   int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("embedding batch %d/%d (items %d-%d): %v", e.Batch, e.Total, e.Start, e.End-1, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

func decodeError(provider string, format string, args ...any) error {
	return &ProviderError{Provider: provider, Kind: KindDecode, Err: fmt.Errorf(format, args...)}
}
