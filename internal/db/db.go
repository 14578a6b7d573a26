package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	JSONStore
	IndexManager
	Searcher
	Transactor
	Clock
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// JSONStore provides JSON document operations.
type JSONStore interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	// JSONSetNX creates the document at key; ErrKeyExists if it is already there.
	JSONSetNX(ctx context.Context, key string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher provides search operations over FT indexes.
type Searcher interface {
	SearchSorted(ctx context.Context, q *SortedQuery) (*SearchResult, error)
	SearchCount(ctx context.Context, q *SortedQuery) (int, error)
}

// Clock exposes the store's own notion of now, shared by every writer.
type Clock interface {
	ServerTime(ctx context.Context) (time.Time, error)
}

// Tx is the view of the store inside an optimistic transaction.
// Reads observe the watched snapshot; writes are queued and applied
// atomically on commit.
type Tx interface {
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	JSONSet(key, path string, data []byte)
	Del(key string)
}

// Transactor runs optimistic read-modify-write transactions.
type Transactor interface {
	// RunTx watches keys, runs fn and commits its queued writes. If any watched
	// key changed before commit nothing is applied and ErrTxConflict is returned.
	// An error from fn aborts the transaction and is returned as is.
	RunTx(ctx context.Context, watch []string, fn func(ctx context.Context, tx Tx) error) error
}
