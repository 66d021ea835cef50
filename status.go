package mocapcsv

import (
	"errors"

	"github.com/phri-lab/mocapcsv/frame"
	"github.com/phri-lab/mocapcsv/row"
)

// Status is the outcome of a conversion, used as the process exit code.
type Status int

const (
	StatusOK        Status = 0
	StatusNoInput   Status = 1 // No JSON file found
	StatusBadFrame  Status = 2 // Critical JSON format error
	StatusIOFailure Status = 3 // A file could not be read or written
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoInput:
		return "no input"
	case StatusBadFrame:
		return "bad frame"
	case StatusIOFailure:
		return "io failure"
	default:
		return "unknown"
	}
}

// ErrNoInput is returned by Converter.Run when the origin folder has no JSON
// file.
var ErrNoInput = errors.New("no json file found")

// StatusOf returns the status corresponding to an error returned by the
// conversion functions.  Errors not coming from the data are I/O failures.
func StatusOf(err error) Status {
	var syntaxErr *frame.SyntaxError
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrNoInput):
		return StatusNoInput
	case errors.Is(err, row.ErrMissingTrackingID),
		errors.Is(err, row.ErrMalformedField),
		errors.As(err, &syntaxErr):
		return StatusBadFrame
	default:
		return StatusIOFailure
	}
}
