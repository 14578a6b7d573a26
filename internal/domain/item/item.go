package item

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/kailas-cloud/artfeed/internal/domain"
	"github.com/kailas-cloud/artfeed/internal/domain/token"
)

// Publish-time limits.
const (
	MaxTitleLen   = 140
	MaxCaptionLen = 1400
	MaxTags       = 10
	MaxTagLen     = 20
)

// Index attributes an item is searchable by.
const (
	FieldTags         = "tags"
	FieldSearchTokens = "searchTokens"
	FieldCreatedAt    = "createdAt"
)

// VisibilityPublic is the only visibility the gallery publishes with.
const VisibilityPublic = "public"

var tagSplit = regexp.MustCompile(`[,\s]+`)

// Draft is the caller input for a new item.
type Draft struct {
	OwnerID   string
	Title     string
	Caption   string
	Tags      []string
	ViewPath  string
	ThumbPath string
}

// Item is a published work (immutable value object).
type Item struct {
	id           string
	ownerID      string
	title        string
	caption      string
	tags         []string
	searchTokens []string
	likeCount    int64
	createdAt    time.Time
	viewPath     string
	thumbPath    string
	visibility   string
}

// New validates a draft and builds a fresh item with likeCount 0.
// The title length limit applies to the raw input, padding included; the
// stored title is trimmed. Tags are normalized and search tokens are derived
// from the normalized fields.
func New(id string, d Draft, createdAt time.Time) (Item, error) {
	if id == "" {
		return Item{}, domain.NewValidation("id", "is required")
	}
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return Item{}, domain.NewValidation("title", "is required")
	}
	if n := utf8.RuneCountInString(d.Title); n > MaxTitleLen {
		return Item{}, domain.NewValidation("title", "too long (%d > %d)", n, MaxTitleLen)
	}
	if n := utf8.RuneCountInString(d.Caption); n > MaxCaptionLen {
		return Item{}, domain.NewValidation("caption", "too long (%d > %d)", n, MaxCaptionLen)
	}
	tags, err := NormalizeTags(d.Tags)
	if err != nil {
		return Item{}, err
	}

	return Item{
		id:           id,
		ownerID:      d.OwnerID,
		title:        title,
		caption:      d.Caption,
		tags:         tags,
		searchTokens: token.Tokenize(token.SearchText(title, d.Caption, tags)),
		createdAt:    createdAt,
		viewPath:     d.ViewPath,
		thumbPath:    d.ThumbPath,
		visibility:   VisibilityPublic,
	}, nil
}

// Reconstruct creates an Item without validation (storage hydration).
func Reconstruct(
	id, ownerID, title, caption string, tags, searchTokens []string,
	likeCount int64, createdAt time.Time, viewPath, thumbPath, visibility string,
) Item {
	return Item{
		id: id, ownerID: ownerID, title: title, caption: caption,
		tags: tags, searchTokens: searchTokens, likeCount: likeCount, createdAt: createdAt,
		viewPath: viewPath, thumbPath: thumbPath, visibility: visibility,
	}
}

// WithCreatedAt returns a copy stamped with the given creation time.
func (i *Item) WithCreatedAt(t time.Time) Item {
	cp := *i
	cp.createdAt = t
	return cp
}

// ID returns the item identifier.
func (i *Item) ID() string { return i.id }

// OwnerID returns the creator identity.
func (i *Item) OwnerID() string { return i.ownerID }

// Title returns the trimmed title.
func (i *Item) Title() string { return i.title }

// Caption returns the caption text.
func (i *Item) Caption() string { return i.caption }

// Tags returns the normalized tags; the first one is the indexed primary tag.
func (i *Item) Tags() []string { return i.tags }

// SearchTokens returns the derived keyword index.
func (i *Item) SearchTokens() []string { return i.searchTokens }

// LikeCount returns the aggregate like counter.
func (i *Item) LikeCount() int64 { return i.likeCount }

// CreatedAt returns the server-assigned creation time.
func (i *Item) CreatedAt() time.Time { return i.createdAt }

// ViewPath returns the blob path of the display image.
func (i *Item) ViewPath() string { return i.viewPath }

// ThumbPath returns the blob path of the thumbnail.
func (i *Item) ThumbPath() string { return i.thumbPath }

// Visibility returns the visibility label.
func (i *Item) Visibility() string { return i.visibility }

// HasAllTags reports whether every wanted tag is on the item.
func (i *Item) HasAllTags(want []string) bool {
	for _, w := range want {
		found := false
		for _, t := range i.tags {
			if t == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// NormalizeTag folds a tag to its indexed form: NFKC, lower case, trimmed.
func NormalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(t)))
}

// NormalizeTags trims, folds and deduplicates tags keeping first-seen order,
// then enforces the count and length limits.
func NormalizeTags(tags []string) ([]string, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, raw := range tags {
		t := NormalizeTag(raw)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) > MaxTags {
		return nil, domain.NewValidation("tags", "too many (%d > %d)", len(out), MaxTags)
	}
	for _, t := range out {
		if n := utf8.RuneCountInString(t); n > MaxTagLen {
			return nil, domain.NewValidation("tags", "tag %q too long (%d > %d)", t, n, MaxTagLen)
		}
	}
	return out, nil
}

// ParseTags splits free-form input such as "sky, sea  sunset" on commas and white space.
func ParseTags(raw string) []string {
	var out []string
	for _, p := range tagSplit.Split(raw, -1) {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
