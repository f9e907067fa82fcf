package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/ugawatch/ugawatch-api/internal/config"
	"github.com/ugawatch/ugawatch-api/internal/modules/downloads/domain"
)

const downloadKeyPrefix = "download:"

// Persister stores download records across restarts.
type Persister interface {
	Load() ([]*domain.Download, error)
	Save(d *domain.Download) error
	Delete(id string) error
}

// BadgerPersister keeps one JSON value per download under "download:<id>".
type BadgerPersister struct {
	db *badger.DB
}

func NewBadgerPersister(db *badger.DB) *BadgerPersister {
	return &BadgerPersister{db: db}
}

// OpenBadger opens the database described by cfg.
func OpenBadger(cfg config.StoreConfig) (*badger.DB, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open download store: %w", err)
	}
	return db, nil
}

func (p *BadgerPersister) Load() ([]*domain.Download, error) {
	var downloads []*domain.Download

	err := p.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(downloadKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var d domain.Download
				if err := json.Unmarshal(val, &d); err != nil {
					return err
				}
				downloads = append(downloads, &d)
				return nil
			})
			if err != nil {
				return fmt.Errorf("decode download: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load downloads: %w", err)
	}

	return downloads, nil
}

func (p *BadgerPersister) Save(d *domain.Download) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal download: %w", err)
	}

	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(downloadKeyPrefix+d.ID), data)
	})
}

func (p *BadgerPersister) Delete(id string) error {
	return p.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(downloadKeyPrefix + id)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete download: %w", err)
		}
		return nil
	})
}

// MemoryPersister keeps records in process memory.
type MemoryPersister struct {
	mu    sync.Mutex
	items map[string]*domain.Download
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{items: make(map[string]*domain.Download)}
}

func (p *MemoryPersister) Load() ([]*domain.Download, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*domain.Download, 0, len(p.items))
	for _, d := range p.items {
		out = append(out, d.Clone())
	}
	return out, nil
}

func (p *MemoryPersister) Save(d *domain.Download) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items[d.ID] = d.Clone()
	return nil
}

func (p *MemoryPersister) Delete(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.items, id)
	return nil
}
