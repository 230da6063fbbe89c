package transport

import (
	"bufio"
	"io"
)

// LineSource is the contract the ingestion pipeline requires from a
// telemetry transport: one line at a time, with bounded blocking.
type LineSource interface {
	// ReadLine returns the next line without its terminator. An empty
	// string with a nil error means no complete line arrived within the
	// transport's read timeout; callers treat that as an idle cycle.
	ReadLine() (string, error)
	Close() error
}

// ReaderSource adapts any io.Reader (a replay file, stdin, a test string)
// to LineSource. ReadLine returns io.EOF once the reader is exhausted.
type ReaderSource struct {
	scanner *bufio.Scanner
	closer  io.Closer
}

// NewReaderSource wraps r. If r also implements io.Closer, Close closes it.
func NewReaderSource(r io.Reader) *ReaderSource {
	src := &ReaderSource{scanner: bufio.NewScanner(r)}
	if c, ok := r.(io.Closer); ok {
		src.closer = c
	}
	return src
}

func (s *ReaderSource) ReadLine() (string, error) {
	if s.scanner.Scan() {
		return s.scanner.Text(), nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *ReaderSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
