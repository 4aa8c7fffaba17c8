package failure

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Tail returns the last n lines of r without reading the whole stream.
//
// It reads a window from the end and doubles it until the window holds more
// than n line breaks or covers the whole stream. Line terminators are
// stripped.
func Tail(r io.ReadSeeker, n int) ([]string, error) {
	if n < 0 {
		return nil, fmt.Errorf("tail: negative line count %d", n)
	}
	if n == 0 {
		return nil, nil
	}

	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("tail: seek end: %w", err)
	}

	window := int64(n + 1)
	var buf []byte
	for {
		if window > size {
			window = size
		}
		if _, err := r.Seek(-window, io.SeekEnd); err != nil {
			return nil, fmt.Errorf("tail: seek: %w", err)
		}
		buf = make([]byte, window)
		if _, err := io.ReadFull(r, buf); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("tail: read: %w", err)
		}
		if window == size || bytes.Count(buf, []byte{'\n'}) > n {
			break
		}
		window *= 2
	}

	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(buf))
	sc.Buffer(make([]byte, 0, 64*1024), len(buf)+1)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("tail: scan: %w", err)
	}

	// The first line of a partial window may be cut mid-line.
	if window < size && len(lines) > 0 {
		lines = lines[1:]
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
