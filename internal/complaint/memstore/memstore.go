// Package memstore provides an in-memory implementation of complaint.Store.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/linnemanlabs/redress/internal/complaint"
)

type entry struct {
	doc      complaint.Complaint
	revision int64
}

// Store holds complaint documents in memory. Suitable for dev/testing.
type Store struct {
	mu   sync.RWMutex
	docs map[string]map[string]*entry // namespace -> id -> entry
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{docs: make(map[string]map[string]*entry)}
}

// Put upserts a copy of the document and bumps its revision.
func (s *Store) Put(_ context.Context, namespace, id string, c *complaint.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns := s.docs[namespace]
	if ns == nil {
		ns = make(map[string]*entry)
		s.docs[namespace] = ns
	}
	var rev int64 = 1
	if prev, ok := ns[id]; ok {
		rev = prev.revision + 1
	}
	cp := *c
	cp.Revision = rev
	ns[id] = &entry{doc: cp, revision: rev}
	return nil
}

// PutRev upserts only when the stored revision matches expected
// (0 = document must not exist). Returns complaint.ErrConflict otherwise.
func (s *Store) PutRev(_ context.Context, namespace, id string, c *complaint.Complaint, expected int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns := s.docs[namespace]
	if ns == nil {
		ns = make(map[string]*entry)
		s.docs[namespace] = ns
	}
	prev, ok := ns[id]
	switch {
	case !ok && expected != 0:
		return complaint.ErrConflict
	case ok && prev.revision != expected:
		return complaint.ErrConflict
	}
	cp := *c
	cp.Revision = expected + 1
	ns[id] = &entry{doc: cp, revision: expected + 1}
	return nil
}

// Get retrieves a document by namespace and id. Returns a copy.
func (s *Store) Get(_ context.Context, namespace, id string) (*complaint.Complaint, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.docs[namespace][id]
	if !ok {
		return nil, false, nil
	}
	cp := e.doc
	return &cp, true, nil
}

// ListIDs returns all identifiers in the namespace under the prefix, sorted.
func (s *Store) ListIDs(_ context.Context, namespace, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id := range s.docs[namespace] {
		if strings.HasPrefix(id, prefix) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
