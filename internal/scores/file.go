package scores

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileStore keeps all users' score records in a single JSON document that is
// read fully and rewritten wholesale on every append. The mutex covers the
// whole load-append-rewrite cycle so concurrent appends cannot lose records.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create scores dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Append(_ context.Context, record Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now().UTC()
	}
	record.RecordedAt = record.RecordedAt.Truncate(time.Second)

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	records = append(records, record)
	return s.persist(records)
}

func (s *FileStore) QueryByUser(_ context.Context, userID string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0)
	for _, r := range records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) load() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read scores file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode scores file: %w", err)
	}
	return records, nil
}

func (s *FileStore) persist(records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode scores file: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write scores file: %w", err)
	}
	return nil
}
