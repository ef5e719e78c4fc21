package models

import (
	"errors"
	"fmt"
)

var (
	ErrAlertNotFound    = errors.New("alert not found")
	ErrInvalidAlertDate = errors.New("alert date must be a valid DDMMYYYY date")
	ErrCycleInProgress  = errors.New("check cycle already in progress")
)

// UpstreamError is a failed call to the offer feed or the mail transport for one alert.
type UpstreamError struct {
	Op      string
	AlertID string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s for alert %s: %v", e.Op, e.AlertID, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// PersistenceError is a failed store write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
