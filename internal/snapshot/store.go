package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store persists captures as screenshot_<timestamp>.png plus a sibling .json.
// Captures within the same second get a _<n> suffix.
type Store struct {
	dir string
	now func() time.Time

	mu   sync.Mutex
	last int64
	seq  int
}

func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = "screenshots"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create screenshot dir: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) stem(ts int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ts == s.last {
		s.seq++
		return fmt.Sprintf("screenshot_%d_%d", ts, s.seq)
	}
	s.last, s.seq = ts, 0
	return fmt.Sprintf("screenshot_%d", ts)
}

// Save writes the image and metadata and returns the resulting observation.
// A nil meta is replaced by the default geometry.
func (s *Store) Save(image []byte, meta *Metadata) (Observation, error) {
	now := s.now()
	ts := now.Unix()
	if meta == nil {
		meta = DefaultMetadata(now)
	}
	cp := *meta
	cp.Timestamp = ts
	if cp.PageInfo.Timestamp == 0 {
		cp.PageInfo.Timestamp = ts
	}

	imagePath := filepath.Join(s.dir, s.stem(ts)+".png")
	if err := os.WriteFile(imagePath, image, 0o644); err != nil {
		return Observation{}, fmt.Errorf("write screenshot: %w", err)
	}
	data, err := json.MarshalIndent(&cp, "", "  ")
	if err != nil {
		return Observation{}, fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(MetadataPath(imagePath), data, 0o644); err != nil {
		return Observation{}, fmt.Errorf("write metadata: %w", err)
	}
	return Observation{ImagePath: imagePath, Meta: &cp}, nil
}

// LoadMetadata reads the metadata file stored next to imagePath.
func LoadMetadata(imagePath string) (*Metadata, error) {
	data, err := os.ReadFile(MetadataPath(imagePath))
	if err != nil {
		return nil, err
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	return &m, nil
}
