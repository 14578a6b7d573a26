// Package memory is an embedded db.Store for tests and single-process runs.
//
// It keeps JSON documents in a map, evaluates FT index
// definitions against JSON documents on the fly and emulates WATCH with
// per-key write versions.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kailas-cloud/artfeed/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

type entry struct {
	doc map[string]any
}

// Store is an in-process db.Store.
type Store struct {
	mu       sync.RWMutex
	data     map[string]*entry
	versions map[string]uint64 // survives deletes so WATCH sees delete+recreate
	seq      uint64
	indexes  map[string]*db.IndexDefinition
	clock    func() time.Time
	closed   bool
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock behind ServerTime.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		data:     make(map[string]*entry),
		versions: make(map[string]uint64),
		indexes:  make(map[string]*db.IndexDefinition),
		clock:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ping reports whether the store is open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("ping: store closed")
	}
	return nil
}

// Close marks the store closed.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// WaitForReady returns immediately; an embedded store is always ready.
func (s *Store) WaitForReady(ctx context.Context, _ time.Duration) error {
	return s.Ping(ctx)
}

// ServerTime returns the store clock.
func (s *Store) ServerTime(_ context.Context) (time.Time, error) {
	return s.clock(), nil
}

// --- JSON ---

// JSONSet writes a document at "$" or a top-level field at "$.field".
func (s *Store) JSONSet(_ context.Context, key, p string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jsonSetLocked(key, p, data)
}

// JSONSetNX creates a document only if key is absent.
func (s *Store) JSONSetNX(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return db.ErrKeyExists
	}
	return s.jsonSetLocked(key, "$", data)
}

// JSONGet mirrors JSON.GET: without paths it returns the document, with a
// JSONPath it returns the array of matches.
func (s *Store) JSONGet(_ context.Context, key string, paths ...string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jsonGetLocked(key, paths...)
}

func (s *Store) jsonSetLocked(key, p string, data []byte) error {
	v, err := decode(data)
	if err != nil {
		return &db.Error{Op: db.OpJSONSet, Err: err}
	}
	if p == "$" || p == "." {
		doc, ok := v.(map[string]any)
		if !ok {
			return &db.Error{Op: db.OpJSONSet, Err: fmt.Errorf("root must be an object")}
		}
		s.data[key] = &entry{doc: doc}
		s.touch(key)
		return nil
	}
	field, ok := topLevelField(p)
	if !ok {
		return &db.Error{Op: db.OpJSONSet, Err: fmt.Errorf("unsupported path %q", p)}
	}
	e, ok := s.data[key]
	if !ok {
		return &db.Error{Op: db.OpJSONSet, Err: fmt.Errorf("new objects must be created at the root")}
	}
	e.doc[field] = v
	s.touch(key)
	return nil
}

func (s *Store) jsonGetLocked(key string, paths ...string) ([]byte, error) {
	e, ok := s.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	if len(paths) == 0 {
		return json.Marshal(e.doc)
	}
	if len(paths) > 1 {
		return nil, &db.Error{Op: db.OpJSONGet, Err: fmt.Errorf("multiple paths are not supported")}
	}
	p := paths[0]
	if p == "$" {
		return json.Marshal([]any{e.doc})
	}
	field, ok := topLevelField(p)
	if !ok {
		return nil, &db.Error{Op: db.OpJSONGet, Err: fmt.Errorf("unsupported path %q", p)}
	}
	v, ok := e.doc[field]
	if !ok {
		return []byte("[]"), nil
	}
	return json.Marshal([]any{v})
}

// --- keys ---

// Exists reports whether key holds a value.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok, nil
}

func (s *Store) delLocked(key string) {
	if _, ok := s.data[key]; ok {
		delete(s.data, key)
		s.touch(key)
	}
}

func (s *Store) touch(key string) {
	s.seq++
	s.versions[key] = s.seq
}

// --- helpers ---

func decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func topLevelField(p string) (string, bool) {
	f := strings.TrimPrefix(p, "$.")
	if f == p || f == "" || strings.ContainsAny(f, ".[]*") {
		return "", false
	}
	return f, true
}
