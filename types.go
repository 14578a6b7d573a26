package artfeed

import (
	"context"
	"time"

	"github.com/kailas-cloud/artfeed/internal/domain"
	domcomment "github.com/kailas-cloud/artfeed/internal/domain/comment"
	domitem "github.com/kailas-cloud/artfeed/internal/domain/item"
	domlike "github.com/kailas-cloud/artfeed/internal/domain/like"
	"github.com/kailas-cloud/artfeed/internal/domain/token"
	commentuc "github.com/kailas-cloud/artfeed/internal/usecase/comment"
	feeduc "github.com/kailas-cloud/artfeed/internal/usecase/feed"
)

// PlaceholderURL is returned for images whose URL could not be resolved.
const PlaceholderURL = domain.PlaceholderURL

// URLResolver turns an opaque blob path into a fetchable URL.
type URLResolver interface {
	ResolveURL(ctx context.Context, path string) (string, error)
}

// Draft is the caller input for Publish.
type Draft struct {
	OwnerID   string
	Title     string
	Caption   string
	Tags      []string
	ViewPath  string
	ThumbPath string
}

// Item is a published artwork.
type Item struct {
	ID         string
	OwnerID    string
	Title      string
	Caption    string
	Tags       []string
	LikeCount  int64
	CreatedAt  time.Time
	ViewPath   string
	ThumbPath  string
	Visibility string
}

// Filter narrows the feed. Tags take precedence over Keyword.
type Filter struct {
	Tags    []string
	Keyword string
}

// FeedEntry is one feed card.
type FeedEntry struct {
	Item     Item
	ThumbURL string
}

// FeedPage is one page of the feed. NextCursor is empty on the last page.
type FeedPage struct {
	Entries    []FeedEntry
	NextCursor string
	Mode       string // "tag", "keyword" or "default"
}

// ItemDetail is the single-item view.
type ItemDetail struct {
	Item          Item
	ViewURL       string
	LikedByViewer bool
}

// LikeResult is the state after a committed toggle.
type LikeResult struct {
	ItemID    string
	Liked     bool
	LikeCount int64
}

// LikeAudit compares an item's counter with its like memberships.
type LikeAudit struct {
	ItemID     string
	LikeCount  int64
	Members    int64
	Consistent bool
}

// Comment is a comment on an item.
type Comment struct {
	ID        string
	ItemID    string
	UserID    string
	Content   string
	CreatedAt time.Time
}

// CommentPage is one page of comments, oldest first.
type CommentPage struct {
	Comments   []Comment
	NextCursor string
}

// HealthStatus is the aggregated component health.
type HealthStatus struct {
	Status string            // "ok", "degraded" or "error"
	Checks map[string]string // component -> "ok" / "error"
}

// Tokenize returns the search tokens indexed for text.
func Tokenize(text string) []string { return token.Tokenize(text) }

// ParseTags splits free-form tag input such as "sky, sea sunset".
func ParseTags(raw string) []string { return domitem.ParseTags(raw) }

// --- converters ---

func toInternalDraft(d *Draft) domitem.Draft {
	return domitem.Draft{
		OwnerID:   d.OwnerID,
		Title:     d.Title,
		Caption:   d.Caption,
		Tags:      d.Tags,
		ViewPath:  d.ViewPath,
		ThumbPath: d.ThumbPath,
	}
}

func fromInternalItem(it *domitem.Item) Item {
	return Item{
		ID:         it.ID(),
		OwnerID:    it.OwnerID(),
		Title:      it.Title(),
		Caption:    it.Caption(),
		Tags:       it.Tags(),
		LikeCount:  it.LikeCount(),
		CreatedAt:  it.CreatedAt(),
		ViewPath:   it.ViewPath(),
		ThumbPath:  it.ThumbPath(),
		Visibility: it.Visibility(),
	}
}

func fromFeedPage(p *feeduc.Page) FeedPage {
	out := FeedPage{
		Entries:    make([]FeedEntry, len(p.Entries)),
		NextCursor: p.NextCursor,
		Mode:       string(p.Mode),
	}
	for i := range p.Entries {
		out.Entries[i] = FeedEntry{Item: fromInternalItem(&p.Entries[i].Item), ThumbURL: p.Entries[i].ThumbURL}
	}
	return out
}

func fromDetail(d *feeduc.Detail) ItemDetail {
	return ItemDetail{Item: fromInternalItem(&d.Item), ViewURL: d.ViewURL, LikedByViewer: d.LikedByViewer}
}

func fromOutcome(o domlike.Outcome) LikeResult {
	return LikeResult{ItemID: o.ItemID, Liked: o.Liked, LikeCount: o.LikeCount}
}

func fromAudit(a domlike.Audit) LikeAudit {
	return LikeAudit{ItemID: a.ItemID, LikeCount: a.LikeCount, Members: a.Members, Consistent: a.Consistent()}
}

func fromComment(c *domcomment.Comment) Comment {
	return Comment{ID: c.ID, ItemID: c.ItemID, UserID: c.UserID, Content: c.Content, CreatedAt: c.CreatedAt}
}

func fromCommentPage(p *commentuc.Page) CommentPage {
	out := CommentPage{Comments: make([]Comment, len(p.Comments)), NextCursor: p.NextCursor}
	for i := range p.Comments {
		out.Comments[i] = fromComment(&p.Comments[i])
	}
	return out
}
