package comment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/artfeed/internal/db/memory"
	"github.com/kailas-cloud/artfeed/internal/domain"
	commentrepo "github.com/kailas-cloud/artfeed/internal/repository/comment"
	itemrepo "github.com/kailas-cloud/artfeed/internal/repository/item"
)

type tickingClock struct {
	ms int64
}

func (c *tickingClock) ServerTime(context.Context) (time.Time, error) {
	c.ms++
	return time.UnixMilli(c.ms / 2), nil // every two comments share a millisecond
}

func newService(t *testing.T, itemIDs ...string) *Service {
	t.Helper()
	ctx := context.Background()
	s := memory.NewStore()
	comments := commentrepo.New(s, 0)
	if err := comments.EnsureIndex(ctx); err != nil {
		t.Fatalf("ensure index: %v", err)
	}
	for _, id := range itemIDs {
		doc := fmt.Sprintf(`{"id":%q,"likeCount":0,"createdAt":1}`, id)
		if err := s.JSONSet(ctx, itemrepo.Key(id), "$", []byte(doc)); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	n := 0
	return New(comments, itemrepo.New(s, 0), &tickingClock{}).WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("c-%03d", n)
	})
}

func TestAdd(t *testing.T) {
	svc := newService(t, "i-1")
	c, err := svc.Add(context.Background(), "i-1", "u-1", "  lovely colours ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Content != "lovely colours" || c.ItemID != "i-1" || c.UserID != "u-1" || c.CreatedAt.IsZero() {
		t.Errorf("unexpected comment: %+v", c)
	}
}

func TestAdd_Errors(t *testing.T) {
	tests := []struct {
		name                    string
		itemID, userID, content string
		want                    error
	}{
		{"no user", "i-1", "", "", domain.ErrPermission},
		{"no item id", "", "u-1", "hi", domain.ErrValidation},
		{"blank content", "i-1", "u-1", "   ", domain.ErrValidation},
		{"long content", "i-1", "u-1", strings.Repeat("x", 1001), domain.ErrValidation},
		{"missing item", "ghost", "u-1", "hi", domain.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := newService(t, "i-1")
			if _, err := svc.Add(context.Background(), tc.itemID, tc.userID, tc.content); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestList_OldestFirstAcrossPages(t *testing.T) {
	svc := newService(t, "i-1", "i-2")
	ctx := context.Background()
	for i := 0; i < 7; i++ {
		if _, err := svc.Add(ctx, "i-1", "u-1", fmt.Sprintf("comment %d", i)); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if _, err := svc.Add(ctx, "i-2", "u-1", "elsewhere"); err != nil {
		t.Fatalf("add: %v", err)
	}

	var got []string
	cursor := ""
	for {
		p, err := svc.List(ctx, "i-1", cursor, 3)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		for _, c := range p.Comments {
			got = append(got, c.Content)
		}
		if p.NextCursor == "" {
			break
		}
		cursor = p.NextCursor
	}
	want := "comment 0,comment 1,comment 2,comment 3,comment 4,comment 5,comment 6"
	if strings.Join(got, ",") != want {
		t.Errorf("got %v", got)
	}
}

func TestList_CursorBoundToItem(t *testing.T) {
	svc := newService(t, "i-1", "i-2")
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _ = svc.Add(ctx, "i-1", "u-1", "c")
	}
	p, err := svc.List(ctx, "i-1", "", 1)
	if err != nil || p.NextCursor == "" {
		t.Fatalf("list: %v cursor=%q", err, p.NextCursor)
	}
	if _, err := svc.List(ctx, "i-2", p.NextCursor, 1); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
