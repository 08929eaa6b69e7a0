package store

import (
	"sync"
	"sync/atomic"

	"github.com/openfroyo/themecfg/pkg/config"
)

// Store holds the process-wide configuration document. Replacement is atomic:
// a reader sees either the old or the new document, never a mix.
type Store struct {
	current atomic.Pointer[config.Document]

	mu   sync.Mutex
	subs map[uint64]func(*config.Document)
	next uint64
}

// New creates a store holding doc.
func New(doc *config.Document) *Store {
	s := &Store{subs: make(map[uint64]func(*config.Document))}
	s.current.Store(doc)
	return s
}

// Load returns the current document. The document is shared and must not be
// modified.
func (s *Store) Load() *config.Document {
	return s.current.Load()
}

// Config returns a copy of the current configuration, or nil when the store
// is empty.
func (s *Store) Config() *config.BuildConfiguration {
	doc := s.current.Load()
	if doc == nil || doc.Config == nil {
		return nil
	}
	return doc.Config.Clone()
}

// Replace swaps in doc and returns the previous document. Subscribers are
// called after the swap, in no particular order. A nil doc is ignored.
func (s *Store) Replace(doc *config.Document) *config.Document {
	if doc == nil {
		return s.current.Load()
	}
	prev := s.current.Swap(doc)

	s.mu.Lock()
	subs := make([]func(*config.Document), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(doc)
	}
	return prev
}

// Subscribe registers fn to be called with every replacement document. The
// returned function removes the subscription.
func (s *Store) Subscribe(fn func(*config.Document)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}
