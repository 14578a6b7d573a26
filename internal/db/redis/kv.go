package redis

import (
	"context"

	"github.com/kailas-cloud/artfeed/internal/db"
)

// Exists checks if a key exists.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	return exists(ctx, s.client, key)
}

func exists(ctx context.Context, c conn, key string) (bool, error) {
	cmd := c.B().Exists().Key(key).Build()
	count, err := c.Do(ctx, cmd).AsInt64()
	if err != nil {
		return false, &db.Error{Op: db.OpExists, Err: err}
	}
	return count > 0, nil
}
