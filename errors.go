package driverator

import (
	"errors"
	"fmt"
)

// Sentinel errors for the operations on a File.
// Use errors.Is(err, driverator.ErrNotFound) to check.
var (
	ErrAuth           = errors.New("driverator: invalid or missing credentials")
	ErrNotFound       = errors.New("driverator: file not found")
	ErrNotInitialized = errors.New("driverator: handle not initialized")
	ErrAlreadyExists  = errors.New("driverator: file already uploaded")
	ErrAmbiguousName  = errors.New("driverator: multiple files match name")
	ErrLocalIO        = errors.New("driverator: local file error")
	ErrRemote         = errors.New("driverator: remote API error")
)

// RemoteError carries the HTTP status code and message of an unclassified
// Drive API failure (quota exceeded, permission denied, server errors).
// It unwraps to ErrRemote.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("driverator: remote API error: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("driverator: remote API error: %s", e.Message)
}

func (e *RemoteError) Unwrap() error {
	return ErrRemote
}
