package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrEmptyBatch        = errors.New("empty batch")
	ErrBatchTooLarge     = errors.New("batch too large")
	ErrUnknownPreset     = errors.New("unknown preset")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// TransportError wraps a failure to reach a collaborator at all.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteError is a collaborator response carrying a failure status.
type RemoteError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: remote: %s (status %d)", e.Op, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: remote: status %d", e.Op, e.StatusCode)
}

// ProtocolError is a malformed or incomplete message from a collaborator.
// On the progress stream it means "unknown outcome", never job failure.
type ProtocolError struct {
	Op     string
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: protocol: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: protocol: %s", e.Op, e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// StateError records an invalid item transition. It is a programming-error
// class fault; callers log it and keep the session alive.
type StateError struct {
	ItemID string
	From   AnalysisStatus
	To     AnalysisStatus
}

func (e *StateError) Error() string {
	return fmt.Sprintf("item %s: invalid transition %s -> %s", e.ItemID, e.From, e.To)
}
