package logging

import (
	"bytes"
	"io"
	"sync"
)

// PrefixWriter starts every line written through it with a fixed prefix.
// Partial lines are held until their newline arrives.
type PrefixWriter struct {
	mu      sync.Mutex
	prefix  []byte
	writer  io.Writer
	pending bytes.Buffer
}

// NewPrefixWriter creates a new PrefixWriter.
func NewPrefixWriter(prefix string, w io.Writer) *PrefixWriter {
	return &PrefixWriter{
		prefix: []byte(prefix),
		writer: w,
	}
}

// Write implements io.Writer. Each complete line reaches the underlying
// writer in a single Write call.
func (pw *PrefixWriter) Write(p []byte) (int, error) {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	n := len(p)
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			pw.pending.Write(p)
			break
		}
		if err := pw.emit(p[:i+1]); err != nil {
			return 0, err
		}
		p = p[i+1:]
	}
	return n, nil
}

// emit writes prefix, pending bytes and tail as one line.
func (pw *PrefixWriter) emit(tail []byte) error {
	line := make([]byte, 0, len(pw.prefix)+pw.pending.Len()+len(tail))
	line = append(line, pw.prefix...)
	line = append(line, pw.pending.Bytes()...)
	line = append(line, tail...)
	pw.pending.Reset()

	_, err := pw.writer.Write(line)
	return err
}
