package pipeline

import (
	"bufio"
	"fmt"
	"os"
	"sync"
)

// Sink owns the output file. All writes go through exactly one goroutine;
// the sink itself only guards against double close.
type Sink struct {
	file  *os.File
	w     *bufio.Writer
	count int64

	closeOnce sync.Once
	closeErr  error
}

// CreateSink creates (or truncates) the output file.
func CreateSink(path string) (*Sink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return &Sink{
		file: file,
		w:    bufio.NewWriter(file),
	}, nil
}

// WriteLine appends one newline-terminated result line.
func (s *Sink) WriteLine(line string) error {
	if _, err := s.w.WriteString(line); err != nil {
		return err
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}
	s.count++
	return nil
}

// Count returns the number of lines written so far.
func (s *Sink) Count() int64 {
	return s.count
}

// Close flushes and closes the file. Safe to call more than once; only the
// first call does the work.
func (s *Sink) Close() error {
	s.closeOnce.Do(func() {
		flushErr := s.w.Flush()
		closeErr := s.file.Close()
		if flushErr != nil {
			s.closeErr = flushErr
			return
		}
		s.closeErr = closeErr
	})
	return s.closeErr
}
