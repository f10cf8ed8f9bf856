// Package monitor defines core types shared across subsystems.
package monitor

import (
	"encoding/json"
	"fmt"
)

// Availability is the tri-state outcome of a voucher check.
type Availability int

// Availability values produced by the classifier.
const (
	AvailabilityUnknown Availability = iota
	AvailabilitySoldOut
	AvailabilityAvailable
)

// String returns a log-friendly name for the availability state.
func (a Availability) String() string {
	switch a {
	case AvailabilityAvailable:
		return "available"
	case AvailabilitySoldOut:
		return "sold_out"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the availability as its string name.
func (a Availability) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// Reason narrows an Availability into a specific status code.
type Reason string

// Reason values attached to check results.
const (
	ReasonReady            Reason = "ready"
	ReasonExhausted        Reason = "exhausted"
	ReasonLoginRequired    Reason = "login_required"
	ReasonTargetNotFound   Reason = "target_not_found"
	ReasonIndeterminate    Reason = "indeterminate"
	ReasonCheckError       Reason = "check_error"
	ReasonSessionRecreated Reason = "session_recreated"
)

// CheckResult is produced once per check cycle and never mutated.
type CheckResult struct {
	Availability Availability `json:"availability"`
	Reason       Reason       `json:"reason"`
	// Snippet carries optional diagnostic text, such as the matched page
	// fragment or an interaction error message.
	Snippet string `json:"snippet,omitempty"`
}

// FetchError marks a session as unusable. The monitoring loop responds by
// destroying and recreating the session rather than classifying the cycle.
type FetchError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}
