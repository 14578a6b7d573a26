package memory

import (
	"context"

	"github.com/kailas-cloud/artfeed/internal/db"
)

// RunTx records the versions of the watched keys, runs fn, and applies the
// queued writes only if none of those versions moved in the meantime.
func (s *Store) RunTx(ctx context.Context, watch []string, fn func(ctx context.Context, tx db.Tx) error) error {
	s.mu.RLock()
	seen := make(map[string]uint64, len(watch))
	for _, k := range watch {
		seen[k] = s.versions[k]
	}
	s.mu.RUnlock()

	tx := &memTx{s: s}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if len(tx.ops) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range seen {
		if s.versions[k] != v {
			return db.ErrTxConflict
		}
	}
	// Validate JSON writes first so a bad op leaves nothing applied.
	for _, op := range tx.ops {
		if op.kind != opJSONSet {
			continue
		}
		if _, err := decode(op.data); err != nil {
			return &db.Error{Op: db.OpExec, Err: err}
		}
		if op.path != "$" {
			if _, ok := s.data[op.key]; !ok {
				return &db.Error{Op: db.OpExec, Err: db.ErrKeyNotFound}
			}
		}
	}
	for _, op := range tx.ops {
		switch op.kind {
		case opJSONSet:
			if err := s.jsonSetLocked(op.key, op.path, op.data); err != nil {
				return &db.Error{Op: db.OpExec, Err: err}
			}
		case opDel:
			s.delLocked(op.key)
		}
	}
	return nil
}

type opKind int

const (
	opJSONSet opKind = iota
	opDel
)

type txOp struct {
	kind opKind
	key  string
	path string
	data []byte
}

type memTx struct {
	s   *Store
	ops []txOp
}

func (t *memTx) JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error) {
	return t.s.JSONGet(ctx, key, paths...)
}

func (t *memTx) Exists(ctx context.Context, key string) (bool, error) {
	return t.s.Exists(ctx, key)
}

func (t *memTx) JSONSet(key, path string, data []byte) {
	t.ops = append(t.ops, txOp{kind: opJSONSet, key: key, path: path, data: append([]byte(nil), data...)})
}

func (t *memTx) Del(key string) {
	t.ops = append(t.ops, txOp{kind: opDel, key: key})
}
