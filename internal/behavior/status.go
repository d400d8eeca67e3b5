package behavior

import (
	"fmt"
)

// Result is the outcome of evaluating a node once.
type Result uint8

const (
	ResultRunning Result = iota
	ResultSuccess
	ResultFailure
	// ResultError marks an authoring or programming error surfaced by a leaf.
	ResultError
)

func (r Result) String() string {
	switch r {
	case ResultRunning:
		return "running"
	case ResultSuccess:
		return "success"
	case ResultFailure:
		return "failure"
	case ResultError:
		return "error"
	default:
		return fmt.Sprintf("Result(%d)", uint8(r))
	}
}

// ParseResult is the inverse of Result.String.
func ParseResult(s string) (Result, error) {
	for r := ResultRunning; r <= ResultError; r++ {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown result: %q", s)
}

// ErrorKind classifies a ResultError.
type ErrorKind string

// Status is what a node evaluation returns: a Result plus the metadata the
// drivers use to decide about interruption.
//
// Two statuses are Equal when their Results match. Cancellable and Bail are
// not part of a status' identity, so a Running status compares equal to
// Running(false) whatever its own flag says.
type Status struct {
	Result Result
	// Kind is set for ResultError.
	Kind ErrorKind
	// Cancellable is meaningful only while Running: it allows the scoring
	// driver to preempt the behavior.
	Cancellable bool
	// Bail aborts the enclosing tree immediately and cancels movement.
	Bail bool
}

// Running returns a Running status.
func Running(cancellable bool) Status {
	return Status{Result: ResultRunning, Cancellable: cancellable}
}

// Success returns a Success status.
func Success() Status {
	return Status{Result: ResultSuccess}
}

// Failure returns a Failure status.
func Failure() Status {
	return Status{Result: ResultFailure}
}

// Error returns an Error status of the given kind.
func Error(kind ErrorKind) Status {
	return Status{Result: ResultError, Kind: kind}
}

// Bail returns a bailing Failure.
func Bail() Status {
	return Status{Result: ResultFailure, Cancellable: true, Bail: true}
}

// Equal compares Results only.
func (s Status) Equal(o Status) bool {
	return s.Result == o.Result
}

// IsRunning reports whether the result is Running.
func (s Status) IsRunning() bool {
	return s.Result == ResultRunning
}

// IsComplete reports Success or Failure.
func (s Status) IsComplete() bool {
	return s.Result == ResultSuccess || s.Result == ResultFailure
}

// IsCancellable is true for every non-Running result, and for Running
// statuses created cancellable.
func (s Status) IsCancellable() bool {
	if s.Result != ResultRunning {
		return true
	}
	return s.Cancellable
}

func (s Status) String() string {
	str := s.Result.String()
	switch {
	case s.Result == ResultError && s.Kind != "":
		str += "(" + string(s.Kind) + ")"
	case s.Result == ResultRunning && s.Cancellable:
		str += "(cancellable)"
	}
	if s.Bail {
		str += "+bail"
	}
	return str
}
