package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/artfeed/internal/db"
)

// conn is the command surface shared by the pooled client and a dedicated
// connection (WATCH state lives on the connection).
type conn interface {
	B() rueidis.Builder
	Do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult
	DoMulti(ctx context.Context, multi ...rueidis.Completed) []rueidis.RedisResult
}

// RunTx runs fn under WATCH on a dedicated connection and commits its queued
// writes with MULTI/EXEC. An aborted EXEC (nil reply) becomes db.ErrTxConflict.
func (s *Store) RunTx(ctx context.Context, watch []string, fn func(ctx context.Context, tx db.Tx) error) error {
	return s.client.Dedicated(func(c rueidis.DedicatedClient) error {
		return runTx(ctx, c, watch, fn)
	})
}

func runTx(ctx context.Context, c conn, watch []string, fn func(ctx context.Context, tx db.Tx) error) error {
	if len(watch) > 0 {
		if err := c.Do(ctx, c.B().Watch().Key(watch...).Build()).Error(); err != nil {
			return &db.Error{Op: db.OpWatch, Err: err}
		}
	}

	tx := &redisTx{c: c}
	if err := fn(ctx, tx); err != nil {
		unwatch(ctx, c)
		return err
	}
	if len(tx.queued) == 0 {
		unwatch(ctx, c)
		return nil
	}

	cmds := make([]rueidis.Completed, 0, len(tx.queued)+2)
	cmds = append(cmds, c.B().Multi().Build())
	cmds = append(cmds, tx.queued...)
	cmds = append(cmds, c.B().Exec().Build())

	results := c.DoMulti(ctx, cmds...)
	if len(results) != len(cmds) {
		return &db.Error{Op: db.OpExec, Err: fmt.Errorf("expected %d replies, got %d", len(cmds), len(results))}
	}
	for _, res := range results[:len(results)-1] {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpExec, Err: err}
		}
	}

	replies, err := results[len(results)-1].ToArray()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return db.ErrTxConflict
		}
		return &db.Error{Op: db.OpExec, Err: err}
	}
	var errs []error
	for _, r := range replies {
		if err := r.Error(); err != nil && !rueidis.IsRedisNil(err) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &db.Error{Op: db.OpExec, Err: errors.Join(errs...)}
	}
	return nil
}

func unwatch(ctx context.Context, c conn) {
	_ = c.Do(ctx, c.B().Unwatch().Build()).Error()
}

type redisTx struct {
	c      conn
	queued []rueidis.Completed
}

func (t *redisTx) JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error) {
	return jsonGet(ctx, t.c, key, paths...)
}

func (t *redisTx) Exists(ctx context.Context, key string) (bool, error) {
	return exists(ctx, t.c, key)
}

func (t *redisTx) JSONSet(key, path string, data []byte) {
	t.queued = append(t.queued, t.c.B().Arbitrary("JSON.SET").Keys(key).Args(path, string(data)).Build())
}

func (t *redisTx) Del(key string) {
	t.queued = append(t.queued, t.c.B().Del().Key(key).Build())
}
