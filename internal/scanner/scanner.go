package scanner

import (
	"bufio"
	"io"
)

// Pos locates a line in the input.  Line is 1-based, 0 means no line has been
// scanned yet.
type Pos struct {
	Line int
}

// A Scanner splits its input into lines, keeping track of line numbers so that
// errors found further down the pipeline can point at the offending input.
//
// Unlike bufio.Scanner there is no limit on the length of a line: frames
// written on a single line can be arbitrarily long.
type Scanner struct {
	reader *bufio.Reader

	// Contents of the current line, without its line terminator.  Reused
	// between calls to Scan.
	line []byte

	// Position of the current line
	pos Pos

	// First error returned by the reader.  io.EOF is recorded here too but
	// never reported by Err().
	err error
}

func NewScanner(reader io.Reader) *Scanner {
	return NewScannerSize(reader, defaultBufSize)
}

func NewScannerSize(reader io.Reader, size int) *Scanner {
	return &Scanner{reader: bufio.NewReaderSize(reader, size)}
}

// Scan advances to the next line.  It returns false when there are no more
// lines, either because the end of input was reached or because of a read
// error (see Err).
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}
	s.line = s.line[:0]
	for {
		chunk, err := s.reader.ReadSlice('\n')
		s.line = append(s.line, chunk...)
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil {
			s.err = err
			if len(s.line) == 0 {
				return false
			}
		}
		break
	}
	s.pos.Line++
	s.line = trimEOL(s.line)
	return true
}

// Bytes returns the current line.  The slice is only valid until the next call
// to Scan.
func (s *Scanner) Bytes() []byte {
	return s.line
}

func (s *Scanner) CurrentPos() Pos {
	return s.pos
}

// Err returns the first non-EOF error encountered by the scanner.
func (s *Scanner) Err() error {
	if s.err == io.EOF {
		return nil
	}
	return s.err
}

func trimEOL(line []byte) []byte {
	n := len(line)
	if n > 0 && line[n-1] == '\n' {
		n--
		if n > 0 && line[n-1] == '\r' {
			n--
		}
	}
	return line[:n]
}

const defaultBufSize = 8192
