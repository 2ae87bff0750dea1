// Package domain defines the core types and interfaces for mulewatch.
package domain

import "errors"

// Sentinel errors distinguishing the three failure classes of the
// analysis pipeline (input rejection, internal invariant violation).
// Detection-level soft failures are never errors — they are dropped
// candidates and never surface here.
var (
	// ErrEmptyInput is returned when a batch has zero transactions.
	ErrEmptyInput = errors.New("mulewatch: empty transaction batch")

	// ErrInvalidTransaction is returned when a transaction fails basic
	// validation (missing sender/receiver, negative amount, zero time).
	ErrInvalidTransaction = errors.New("mulewatch: invalid transaction")

	// ErrInternalInvariant marks an unexpected violation of a core
	// invariant (e.g. a graph lookup miss for a node a detector just
	// emitted). Always fatal to the run.
	ErrInternalInvariant = errors.New("mulewatch: internal invariant violated")

	// ErrAnalysisNotFound is returned by the repository/cache lookup
	// path when an analysis_id is unknown.
	ErrAnalysisNotFound = errors.New("mulewatch: analysis not found")

	// ErrAnalysisNotReady is returned when a caller asks for a
	// projection of an analysis that has not completed.
	ErrAnalysisNotReady = errors.New("mulewatch: analysis not complete")
)
