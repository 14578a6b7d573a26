package chi

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kailas-cloud/artfeed/internal/domain"
	domcomment "github.com/kailas-cloud/artfeed/internal/domain/comment"
	domitem "github.com/kailas-cloud/artfeed/internal/domain/item"
	domlike "github.com/kailas-cloud/artfeed/internal/domain/like"
	commentuc "github.com/kailas-cloud/artfeed/internal/usecase/comment"
	feeduc "github.com/kailas-cloud/artfeed/internal/usecase/feed"
)

// Request shape checks only. Content rules (rune limits, tag normalization)
// belong to the domain constructors.
type publishRequest struct {
	Title     string   `json:"title" validate:"required"`
	Caption   string   `json:"caption"`
	Tags      []string `json:"tags" validate:"omitempty,max=50"`
	TagsText  string   `json:"tagsText"`
	ViewPath  string   `json:"viewPath" validate:"required,max=1024"`
	ThumbPath string   `json:"thumbPath" validate:"required,max=1024"`
}

func (r *publishRequest) draft(ownerID string) domitem.Draft {
	tags := r.Tags
	if r.TagsText != "" {
		tags = append(tags, domitem.ParseTags(r.TagsText)...)
	}
	return domitem.Draft{
		OwnerID:   ownerID,
		Title:     r.Title,
		Caption:   r.Caption,
		Tags:      tags,
		ViewPath:  r.ViewPath,
		ThumbPath: r.ThumbPath,
	}
}

type commentRequest struct {
	Content string `json:"content" validate:"required"`
}

type pageQuery struct {
	Cursor string `json:"cursor" validate:"max=512"`
	Limit  int    `json:"limit" validate:"gte=0"`
}

type feedQuery struct {
	pageQuery
	Tags    []string `json:"tags" validate:"max=10"`
	Keyword string   `json:"q" validate:"max=500"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct reports the first failing field as a domain validation error.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		reason := "failed " + fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		return domain.NewValidation(fe.Field(), "%s", reason)
	}
	return fmt.Errorf("validate request: %w", err)
}

type itemResponse struct {
	ID         string   `json:"id"`
	OwnerID    string   `json:"ownerId"`
	Title      string   `json:"title"`
	Caption    string   `json:"caption"`
	Tags       []string `json:"tags"`
	LikeCount  int64    `json:"likeCount"`
	CreatedAt  string   `json:"createdAt"`
	Visibility string   `json:"visibility"`
	ThumbURL   string   `json:"thumbUrl,omitempty"`
	ViewURL    string   `json:"viewUrl,omitempty"`
}

func itemToResponse(it *domitem.Item) itemResponse {
	return itemResponse{
		ID:         it.ID(),
		OwnerID:    it.OwnerID(),
		Title:      it.Title(),
		Caption:    it.Caption(),
		Tags:       nonNil(it.Tags()),
		LikeCount:  it.LikeCount(),
		CreatedAt:  formatTime(it.CreatedAt()),
		Visibility: it.Visibility(),
	}
}

type feedResponse struct {
	Items      []itemResponse `json:"items"`
	NextCursor string         `json:"nextCursor,omitempty"`
	Mode       string         `json:"mode"`
}

func feedToResponse(p *feeduc.Page) feedResponse {
	items := make([]itemResponse, len(p.Entries))
	for i := range p.Entries {
		items[i] = itemToResponse(&p.Entries[i].Item)
		items[i].ThumbURL = p.Entries[i].ThumbURL
	}
	return feedResponse{Items: items, NextCursor: p.NextCursor, Mode: string(p.Mode)}
}

type detailResponse struct {
	itemResponse
	LikedByViewer bool `json:"likedByViewer"`
}

type likeResponse struct {
	ItemID    string `json:"itemId"`
	Liked     bool   `json:"liked"`
	LikeCount int64  `json:"likeCount"`
}

func outcomeToResponse(o domlike.Outcome) likeResponse {
	return likeResponse{ItemID: o.ItemID, Liked: o.Liked, LikeCount: o.LikeCount}
}

type likedResponse struct {
	ItemID string `json:"itemId"`
	Liked  bool   `json:"liked"`
}

type auditResponse struct {
	ItemID     string `json:"itemId"`
	LikeCount  int64  `json:"likeCount"`
	Members    int64  `json:"members"`
	Consistent bool   `json:"consistent"`
}

type commentResponse struct {
	ID        string `json:"id"`
	ItemID    string `json:"itemId"`
	UserID    string `json:"userId"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

func commentToResponse(c *domcomment.Comment) commentResponse {
	return commentResponse{
		ID:        c.ID,
		ItemID:    c.ItemID,
		UserID:    c.UserID,
		Content:   c.Content,
		CreatedAt: formatTime(c.CreatedAt),
	}
}

type commentPageResponse struct {
	Comments   []commentResponse `json:"comments"`
	NextCursor string            `json:"nextCursor,omitempty"`
}

func commentPageToResponse(p *commentuc.Page) commentPageResponse {
	out := commentPageResponse{Comments: make([]commentResponse, len(p.Comments)), NextCursor: p.NextCursor}
	for i := range p.Comments {
		out.Comments[i] = commentToResponse(&p.Comments[i])
	}
	return out
}

type healthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
