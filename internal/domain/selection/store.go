package selection

import "sync"

// CommitFunc observes a commit.  version is the store version after the
// commit.  Observers run synchronously on the committing goroutine, after the
// store lock has been released.
type CommitFunc func(sel Selection, version uint64)

// Store holds the current Selection per kind.  Writes replace the whole
// record.  It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	current   map[Kind]Selection
	version   uint64
	observers []CommitFunc
}

// NewStore returns a store with both kinds unselected.
func NewStore() *Store {
	s := &Store{current: make(map[Kind]Selection, len(Kinds))}
	for _, k := range Kinds {
		s.current[k] = Empty(k)
	}
	return s
}

// Commit replaces the selection for sel.Kind and notifies observers.
func (s *Store) Commit(sel Selection) uint64 {
	s.mu.Lock()
	s.current[sel.Kind] = sel
	s.version++
	v := s.version
	observers := append([]CommitFunc(nil), s.observers...)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(sel, v)
	}
	return v
}

// Current returns the selection for kind.
func (s *Store) Current(kind Kind) Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sel, ok := s.current[kind]; ok {
		return sel
	}
	return Empty(kind)
}

// Pair returns the drug and protein selections and the version they were
// read at, under one lock.
func (s *Store) Pair() (drug, protein Selection, version uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current[KindDrug], s.current[KindProtein], s.version
}

// Version returns the number of commits so far.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Subscribe registers fn for every subsequent commit.
func (s *Store) Subscribe(fn CommitFunc) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

//Personal.AI order the ending
