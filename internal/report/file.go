package report

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// FileSink appends one results line per run to a text file.
type FileSink struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// NewFileSink opens path for appending, creating it if needed.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening results file %s: %w", path, err)
	}
	return &FileSink{f: f, path: path}, nil
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Write(_ context.Context, r Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintln(s.f, r.Line()); err != nil {
		return fmt.Errorf("appending to %s: %w", s.path, err)
	}
	return nil
}

func (s *FileSink) Close() error {
	return s.f.Close()
}
