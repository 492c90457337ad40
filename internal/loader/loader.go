package loader

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sync"

	"renewal-review/backend/internal/policy"
	"renewal-review/backend/internal/store"
)

// DataSource supplies the renewal pairs to review. Implementations cache
// aggressively; Invalidate drops the cache after the dataset changes.
type DataSource interface {
	LoadPairs(sample int) ([]policy.RenewalPair, error)
	FindPair(policyNumber string) (policy.RenewalPair, bool, error)
	TotalCount() (int, error)
	Invalidate()
}

// FileSource reads renewal pairs from a JSON dataset file. A missing file is
// treated as an empty dataset so a fresh install starts clean.
type FileSource struct {
	path string

	mu     sync.Mutex
	cached []policy.RenewalPair
	loaded bool
}

// NewFileSource builds a source over the dataset at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) load() ([]policy.RenewalPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.cached, nil
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.cached = nil
		s.loaded = true
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	pairs, err := policy.ParsePairs(data)
	if err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	s.cached = pairs
	s.loaded = true
	return pairs, nil
}

// LoadPairs returns the dataset, optionally down-sampled to sample pairs.
func (s *FileSource) LoadPairs(sample int) ([]policy.RenewalPair, error) {
	pairs, err := s.load()
	if err != nil {
		return nil, err
	}
	return samplePairs(pairs, sample), nil
}

// FindPair locates one pair by policy number.
func (s *FileSource) FindPair(policyNumber string) (policy.RenewalPair, bool, error) {
	pairs, err := s.load()
	if err != nil {
		return policy.RenewalPair{}, false, err
	}
	for _, pair := range pairs {
		if pair.Renewal.PolicyNumber == policyNumber {
			return pair, true, nil
		}
	}
	return policy.RenewalPair{}, false, nil
}

// TotalCount reports the dataset size.
func (s *FileSource) TotalCount() (int, error) {
	pairs, err := s.load()
	if err != nil {
		return 0, err
	}
	return len(pairs), nil
}

// Invalidate drops the cache so the next load re-reads the file.
func (s *FileSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
	s.loaded = false
}

// DBSource reads renewal pairs from the database.
type DBSource struct {
	db *store.Database

	mu     sync.Mutex
	cached []policy.RenewalPair
	loaded bool
}

// NewDBSource builds a source over the stored pair records.
func NewDBSource(db *store.Database) *DBSource {
	return &DBSource{db: db}
}

func (s *DBSource) load() ([]policy.RenewalPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.cached, nil
	}
	pairs, _, err := s.db.ListPairs(0, 0)
	if err != nil {
		return nil, err
	}
	s.cached = pairs
	s.loaded = true
	return pairs, nil
}

// LoadPairs returns the stored dataset, optionally down-sampled.
func (s *DBSource) LoadPairs(sample int) ([]policy.RenewalPair, error) {
	pairs, err := s.load()
	if err != nil {
		return nil, err
	}
	return samplePairs(pairs, sample), nil
}

// FindPair loads one pair by policy number straight from the store.
func (s *DBSource) FindPair(policyNumber string) (policy.RenewalPair, bool, error) {
	pair, err := s.db.GetPair(policyNumber)
	if errors.Is(err, store.ErrNotFound) {
		return policy.RenewalPair{}, false, nil
	}
	if err != nil {
		return policy.RenewalPair{}, false, err
	}
	return pair, true, nil
}

// TotalCount reports the stored dataset size.
func (s *DBSource) TotalCount() (int, error) {
	pairs, err := s.load()
	if err != nil {
		return 0, err
	}
	return len(pairs), nil
}

// Invalidate drops the cache so the next load re-queries the store.
func (s *DBSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
	s.loaded = false
}

// samplePairs picks sample pairs at random when the dataset is larger than
// the requested sample; otherwise the full dataset is returned as a copy.
func samplePairs(pairs []policy.RenewalPair, sample int) []policy.RenewalPair {
	out := make([]policy.RenewalPair, len(pairs))
	copy(out, pairs)
	if sample <= 0 || sample >= len(out) {
		return out
	}
	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out[:sample]
}
