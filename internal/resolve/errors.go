// Package resolve turns a parsed time log into a committed, non-overlapping
// interval: it picks the project, continues from the day's last entry,
// validates the span and settles conflicts with stored intervals.
//
// The overlap check and the following write are not atomic. Another process
// writing between the two can still leave overlapping rows behind.
package resolve

import "github.com/pkg/errors"

var (
	// ErrCrossMidnight is returned when a span starts and ends on different days.
	ErrCrossMidnight = errors.New("cross-midnight ranges are not supported")
	// ErrFutureTime is returned when a span starts or ends after now.
	ErrFutureTime = errors.New("start and end must be in the past")
	// ErrConflictUnresolved is returned when a span overlaps stored intervals
	// and nobody can decide how to proceed.
	ErrConflictUnresolved = errors.New("time range overlaps existing intervals")
	// ErrCancelled is returned when the user declines to carve.
	ErrCancelled = errors.New("cancelled by user")
)
