// Package store keeps the set of offline downloads and notifies subscribers
// on every change.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ugawatch/ugawatch-api/internal/modules/downloads/domain"
)

var (
	ErrDownloadNotFound = errors.New("download not found")
	ErrDownloadExists   = errors.New("download already exists")
)

// Listener receives a snapshot of all downloads, newest first.
type Listener func(snapshot []*domain.Download)

// Store is the in-memory view of downloads, written through to a Persister.
type Store struct {
	mu        sync.RWMutex
	items     map[string]*domain.Download
	persister Persister

	subMu     sync.Mutex
	listeners map[int]Listener
	nextSub   int
}

// New loads existing records from p.
func New(p Persister) (*Store, error) {
	loaded, err := p.Load()
	if err != nil {
		return nil, err
	}

	s := &Store{
		items:     make(map[string]*domain.Download, len(loaded)),
		persister: p,
		listeners: make(map[int]Listener),
	}
	for _, d := range loaded {
		s.items[d.ID] = d
	}
	return s, nil
}

func (s *Store) Add(d *domain.Download) error {
	s.mu.Lock()
	if _, ok := s.items[d.ID]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDownloadExists, d.ID)
	}
	if err := s.persister.Save(d); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to persist download: %w", err)
	}
	s.items[d.ID] = d.Clone()
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
	return nil
}

func (s *Store) Get(id string) (*domain.Download, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.items[id]
	if !ok {
		return nil, ErrDownloadNotFound
	}
	return d.Clone(), nil
}

// List returns every download, newest first.
func (s *Store) List() []*domain.Download {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Update applies fn to a copy of the record and stores the result.
func (s *Store) Update(id string, fn func(d *domain.Download)) (*domain.Download, error) {
	s.mu.Lock()
	current, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrDownloadNotFound
	}

	updated := current.Clone()
	fn(updated)
	updated.ID = id

	if err := s.persister.Save(updated); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to persist download: %w", err)
	}
	s.items[id] = updated
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
	return updated.Clone(), nil
}

func (s *Store) Remove(id string) error {
	s.mu.Lock()
	if _, ok := s.items[id]; !ok {
		s.mu.Unlock()
		return ErrDownloadNotFound
	}
	if err := s.persister.Delete(id); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to delete download: %w", err)
	}
	delete(s.items, id)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snapshot)
	return nil
}

// Subscribe registers fn for change notifications and returns a function
// that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.listeners, id)
		s.subMu.Unlock()
	}
}

// snapshotLocked must be called with at least a read lock held.
func (s *Store) snapshotLocked() []*domain.Download {
	out := make([]*domain.Download, 0, len(s.items))
	for _, d := range s.items {
		out = append(out, d.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) notify(snapshot []*domain.Download) {
	s.subMu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.subMu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
}
