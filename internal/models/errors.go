package models

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors
var (
	ErrInvalidTransition = errors.New("invalid slot transition")
	ErrInvalidOperation  = errors.New("operation not valid for item origin")
	ErrItemNotFound      = errors.New("collection item not found")
	ErrUnknownSlot       = errors.New("unknown slot")
	ErrStoreFrozen       = errors.New("staging store is frozen during commit")
	ErrCommitInFlight    = errors.New("commit already in flight")
	ErrNotAuthenticated  = errors.New("not authenticated")
)

// APIError represents an error returned by the persistence API. The
// engine does not interpret it beyond success/failure; it is carried
// to the caller unchanged.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
	RequestID  string `json:"request_id,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// TransitionError reports an illegal slot transition.
type TransitionError struct {
	Slot string
	From string
	Op   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("slot %s: cannot %s while %s", e.Slot, e.Op, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// OperationError reports a collection operation applied to an item of
// the wrong origin or status.
type OperationError struct {
	ItemID string
	Op     string
	Reason string
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("item %s: cannot %s: %s", e.ItemID, e.Op, e.Reason)
}

func (e *OperationError) Unwrap() error {
	return ErrInvalidOperation
}

// Violation is one invariant breach found by StagingStore.Validate. The
// subject is the offending slot name or item ID.
type Violation struct {
	Subject string
	Detail  string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Subject, v.Detail)
}

// ValidationError aggregates invariant violations. It is raised before
// any network activity; no payload is sent while one exists.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(parts, "; "))
}
