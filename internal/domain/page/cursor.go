// Package page defines keyset positions and the opaque cursors that carry them.
package page

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/kailas-cloud/artfeed/internal/domain"
)

// Position is a point in the (createdAt, id) total order.
type Position struct {
	CreatedAt int64 // unix ms
	ID        string
}

// Less reports whether p sorts before q in ascending (createdAt, id) order.
func (p Position) Less(q Position) bool {
	if p.CreatedAt != q.CreatedAt {
		return p.CreatedAt < q.CreatedAt
	}
	return p.ID < q.ID
}

// Row is a decoded record together with its position.
type Row[T any] struct {
	Pos   Position
	Value T
}

// Scope fingerprints the query a cursor belongs to.
func Scope(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(h[:6])
}

// EncodeCursor packs a position for the given scope into an opaque token.
func EncodeCursor(p Position, scope string) string {
	raw := strconv.FormatInt(p.CreatedAt, 10) + ":" + scope + ":" + p.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor unpacks a cursor. A malformed token or one issued for another
// scope fails with a validation error on field "cursor".
func DecodeCursor(cursor, scope string) (Position, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return Position{}, domain.NewValidation("cursor", "malformed")
	}
	parts := strings.SplitN(string(raw), ":", 3)
	if len(parts) != 3 || parts[2] == "" {
		return Position{}, domain.NewValidation("cursor", "malformed")
	}
	ts, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Position{}, domain.NewValidation("cursor", "malformed")
	}
	if parts[1] != scope {
		return Position{}, domain.NewValidation("cursor", "issued for a different filter")
	}
	return Position{CreatedAt: ts, ID: parts[2]}, nil
}
