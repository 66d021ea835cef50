package frame

import (
	"fmt"
	"io"

	"github.com/phri-lab/mocapcsv/internal/scanner"
)

// A SyntaxError is returned by Reader.Next when the input cannot be split into
// frames or when a frame is not a valid JSON object.
type SyntaxError struct {
	Line int // Line where the offending frame starts
	Err  error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("malformed frame at line %d: %s", e.Line, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// A Reader splits a stream of concatenated JSON objects into frames.
//
// Object boundaries are found by tracking the brace depth: an object is
// complete when the depth returns to zero.  Braces inside string literals are
// ignored, so both pretty-printed frames and frames written on one line are
// supported.  Blank lines are ignored.  Between frames only white space and
// commas are allowed.
type Reader struct {
	lines *scanner.Scanner

	// Part of the current line not yet consumed.
	pending []byte

	// Text of the frame being accumulated.
	buf []byte

	// Brace depth of the frame being accumulated, 0 between frames.
	depth    int
	inString bool
	escaped  bool

	// Line where the current frame started.
	start scanner.Pos

	// Once set, returned by every call to Next.
	err error
}

// NewReader returns a Reader consuming in.
func NewReader(in io.Reader) *Reader {
	return &Reader{lines: scanner.NewScanner(in)}
}

// Next returns the next frame.  It returns io.EOF when the input is exhausted.
// Malformed input is reported as a *SyntaxError; errors from the underlying
// reader are returned as is.  After an error, Next keeps returning the same
// error.
func (r *Reader) Next() (*Frame, error) {
	if r.err != nil {
		return nil, r.err
	}
	f, err := r.next()
	if err != nil {
		r.err = err
	}
	return f, err
}

func (r *Reader) next() (*Frame, error) {
	for {
		if len(r.pending) == 0 {
			if !r.lines.Scan() {
				if err := r.lines.Err(); err != nil {
					return nil, err
				}
				if r.depth > 0 {
					return nil, r.syntaxError(io.ErrUnexpectedEOF)
				}
				return nil, io.EOF
			}
			line := r.lines.Bytes()
			if scanner.IsBlank(line) {
				continue
			}
			if r.depth > 0 {
				r.buf = append(r.buf, '\n')
			}
			r.pending = line
		}
		complete, err := r.consume()
		if err != nil {
			return nil, err
		}
		if complete {
			f, err := Decode(r.buf)
			if err != nil {
				return nil, r.syntaxError(err)
			}
			return f, nil
		}
	}
}

// consume feeds the pending bytes into the frame buffer, stopping right after
// the brace which closes the current frame.  It returns true if a frame was
// completed.
func (r *Reader) consume() (bool, error) {
	for i, b := range r.pending {
		if r.depth == 0 {
			switch {
			case scanner.IsSpace(b) || b == ',':
				continue
			case b == '{':
				r.start = r.lines.CurrentPos()
				r.buf = r.buf[:0]
			default:
				r.start = r.lines.CurrentPos()
				r.pending = nil
				return false, r.syntaxError(fmt.Errorf("unexpected %q outside of a frame", b))
			}
		}
		r.buf = append(r.buf, b)
		if r.inString {
			switch {
			case r.escaped:
				r.escaped = false
			case b == '\\':
				r.escaped = true
			case b == '"':
				r.inString = false
			}
			continue
		}
		switch b {
		case '"':
			r.inString = true
		case '{':
			r.depth++
		case '}':
			r.depth--
			if r.depth == 0 {
				r.pending = r.pending[i+1:]
				return true, nil
			}
		}
	}
	r.pending = nil
	return false, nil
}

func (r *Reader) syntaxError(err error) *SyntaxError {
	return &SyntaxError{Line: r.start.Line, Err: err}
}
