package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("session not found")
	ErrDuplicateCode     = errors.New("an open session with this code already exists")
	ErrUnknownActivity   = errors.New("unknown activity")
	ErrAlreadyJoined     = errors.New("user already has a turn in this session")
	ErrNotOpen           = errors.New("session is not open")
	ErrNotAbandoned      = errors.New("session is not abandoned")
	ErrNotAllowed        = errors.New("requester may not abandon this session yet")
	ErrNotHost           = errors.New("only the session host can do this")
	ErrCodeTaken         = errors.New("another open session currently holds this code")
	ErrNoImagesAvailable = errors.New("no images available for this category")
)

// StoreError marks backend I/O failures. Guard failures above are expected
// outcomes; a StoreError is the only class logged as operational.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func NewStoreError(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// StatusGuardError translates a failed compare-and-swap on status into the
// guard error the requested transition implies.
func StatusGuardError(expected Status) error {
	switch expected {
	case StatusOpen:
		return ErrNotOpen
	case StatusAbandoned:
		return ErrNotAbandoned
	default:
		return fmt.Errorf("session is not in status %q", expected)
	}
}
