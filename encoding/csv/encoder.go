// Package csv writes converted frames as CSV text.
//
// The output follows the layout of the lab's historical files: fields are
// separated by ", " and the header line ends with a trailing separator.  This
// is why encoding/csv from the standard library is not used here.
package csv

import (
	"bytes"
	"fmt"
	"io"
)

// DefaultSeparator is placed between header columns.
const DefaultSeparator = ", "

// An EncoderError wraps an error returned by the underlying writer.
type EncoderError struct {
	Err error
}

func (e *EncoderError) Error() string {
	return fmt.Sprintf("csv write error: %s", e.Err)
}

func (e *EncoderError) Unwrap() error {
	return e.Err
}

// An Encoder accumulates rows in memory and writes them to the underlying
// writer every FlushThreshold rows.  Call Flush once all rows are written or
// the last rows will be lost.
type Encoder struct {
	w              io.Writer
	flushThreshold int
	Separator      string

	buf     bytes.Buffer
	pending int // Number of rows in buf
	rows    int // Number of rows accepted so far
	err     error
}

// NewEncoder returns an Encoder writing to w.  A flushThreshold below 1 means
// every row is written straight away.
func NewEncoder(w io.Writer, flushThreshold int) *Encoder {
	if flushThreshold < 1 {
		flushThreshold = 1
	}
	return &Encoder{w: w, flushThreshold: flushThreshold, Separator: DefaultSeparator}
}

// WriteHeader writes the header line.  Each column is followed by the
// separator, including the last one.
func (e *Encoder) WriteHeader(columns []string) error {
	if e.err != nil {
		return e.err
	}
	for _, col := range columns {
		e.buf.WriteString(col)
		e.buf.WriteString(e.Separator)
	}
	e.buf.WriteByte('\n')
	return nil
}

// WriteRow adds a row, flushing if the threshold is reached.
func (e *Encoder) WriteRow(r fmt.Stringer) error {
	if e.err != nil {
		return e.err
	}
	e.buf.WriteString(r.String())
	e.buf.WriteByte('\n')
	e.pending++
	e.rows++
	if e.pending >= e.flushThreshold {
		return e.Flush()
	}
	return nil
}

// Flush writes all buffered data to the underlying writer.
func (e *Encoder) Flush() error {
	if e.err != nil {
		return e.err
	}
	if e.buf.Len() == 0 {
		return nil
	}
	_, err := e.w.Write(e.buf.Bytes())
	e.buf.Reset()
	e.pending = 0
	if err != nil {
		e.err = &EncoderError{Err: err}
	}
	return e.err
}

// Rows returns the number of rows written so far, including those not flushed
// yet.
func (e *Encoder) Rows() int {
	return e.rows
}

// Buffered returns the number of rows waiting for the next flush.
func (e *Encoder) Buffered() int {
	return e.pending
}
