package comment

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kailas-cloud/artfeed/internal/domain"
)

// MaxContentLen bounds a single comment.
const MaxContentLen = 1000

// Comment is a user remark on an item, listed oldest first.
type Comment struct {
	ID        string
	ItemID    string
	UserID    string
	Content   string
	CreatedAt time.Time
}

// New validates content and builds a comment.
func New(id, itemID, userID, content string, createdAt time.Time) (Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Comment{}, domain.NewValidation("content", "is required")
	}
	if n := utf8.RuneCountInString(content); n > MaxContentLen {
		return Comment{}, domain.NewValidation("content", "too long (%d > %d)", n, MaxContentLen)
	}
	return Comment{ID: id, ItemID: itemID, UserID: userID, Content: content, CreatedAt: createdAt}, nil
}
