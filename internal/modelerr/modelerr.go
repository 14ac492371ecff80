// Package modelerr defines the failure categories shared by every stage of
// the latency model. Component errors unwrap to one of these sentinels so
// callers can classify a failure with errors.Is.
package modelerr

import "errors"

var (
	// ErrInputShape covers wrong file counts, wrong column counts and cells
	// that cannot be read as numbers.
	ErrInputShape = errors.New("input shape error")

	// ErrRoleMismatch is returned when a supplied table does not carry the
	// statistic expected at its position.
	ErrRoleMismatch = errors.New("input role mismatch")

	// ErrTopologyArgument covers missing or out-of-range topology
	// parameters.
	ErrTopologyArgument = errors.New("topology argument error")

	// ErrNumericConsistency marks input data that contradicts the model's
	// assumptions, e.g. a saturated link.
	ErrNumericConsistency = errors.New("numeric consistency error")
)
