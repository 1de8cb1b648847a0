// Package lines reassembles logical lines from rsync's output streams.
//
// rsync's --info=progress2 mode redraws its progress line in place with a
// bare carriage return, so both '\r' and '\n' terminate a line here. A
// trailing fragment without a terminator is held until a later chunk ends
// it; if the stream ends first the fragment is dropped.
package lines

import (
	"errors"
	"io"
)

// readSize is the chunk size used by Scan.
const readSize = 32 * 1024

// Splitter turns arbitrary byte chunks of one stream into complete lines.
// The zero value is ready to use. A Splitter is not safe for concurrent use;
// give each stream its own.
type Splitter struct {
	buf []byte
}

// Feed appends chunk to the pending fragment and returns every line it
// completes. Runs of terminators never produce empty lines, so a stream
// yields the same lines however it is chunked.
func (s *Splitter) Feed(chunk []byte) []string {
	var out []string

	data := chunk
	if len(s.buf) > 0 {
		data = append(s.buf, chunk...)
	}

	start := 0
	for i, b := range data {
		if b != '\n' && b != '\r' {
			continue
		}
		if i > start {
			out = append(out, string(data[start:i]))
		}
		start = i + 1
	}

	rest := data[start:]
	if len(rest) == 0 {
		s.buf = s.buf[:0]
	} else {
		s.buf = append(make([]byte, 0, len(rest)), rest...)
	}
	return out
}

// Pending returns the buffered fragment that has not been terminated yet.
func (s *Splitter) Pending() string {
	return string(s.buf)
}

// Reset discards any buffered fragment.
func (s *Splitter) Reset() {
	s.buf = s.buf[:0]
}

// Scan reads r until EOF, calling fn for each complete line in order.
// The unterminated tail of the stream is dropped. A read error other than
// io.EOF stops the scan and is returned.
func Scan(r io.Reader, fn func(line string)) error {
	var s Splitter
	buf := make([]byte, readSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, line := range s.Feed(buf[:n]) {
				fn(line)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
