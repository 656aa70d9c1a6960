// Package planaudit adapts planaudit.Sink to an append-only JSONL file,
// one line per plan run: open once in append mode, serialize under a
// mutex, flush every write so a crash loses at most the in-flight
// record.
package planaudit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/odrlplan/odrlplan/internal/domain/planaudit"
)

// FileSink writes one JSON object per line to a file opened in
// append-only mode.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewFileSink opens (creating if necessary) path for append and returns
// a FileSink backed by it. Callers must Close when done.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("planaudit: open %s: %w", path, err)
	}
	return &FileSink{file: f, enc: json.NewEncoder(f)}, nil
}

// Write appends entry as one JSON line.
func (s *FileSink) Write(entry planaudit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(entry); err != nil {
		return fmt.Errorf("planaudit: encode entry: %w", err)
	}
	return s.file.Sync()
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	return s.file.Close()
}
