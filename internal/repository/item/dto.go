package item

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kailas-cloud/artfeed/internal/db"
	domitem "github.com/kailas-cloud/artfeed/internal/domain/item"
	"github.com/kailas-cloud/artfeed/internal/domain/page"
)

// itemDoc is the stored JSON shape of an item.
type itemDoc struct {
	ID           string   `json:"id"`
	OwnerID      string   `json:"ownerId"`
	Title        string   `json:"title"`
	Caption      string   `json:"caption"`
	Tags         []string `json:"tags"`
	SearchTokens []string `json:"searchTokens"`
	LikeCount    int64    `json:"likeCount"`
	CreatedAt    int64    `json:"createdAt"`
	ViewPath     string   `json:"viewPath"`
	ThumbPath    string   `json:"thumbPath"`
	Visibility   string   `json:"visibility"`
}

func toDoc(it *domitem.Item) itemDoc {
	tags := it.Tags()
	if tags == nil {
		tags = []string{}
	}
	tokens := it.SearchTokens()
	if tokens == nil {
		tokens = []string{}
	}
	return itemDoc{
		ID:           it.ID(),
		OwnerID:      it.OwnerID(),
		Title:        it.Title(),
		Caption:      it.Caption(),
		Tags:         tags,
		SearchTokens: tokens,
		LikeCount:    it.LikeCount(),
		CreatedAt:    it.CreatedAt().UnixMilli(),
		ViewPath:     it.ViewPath(),
		ThumbPath:    it.ThumbPath(),
		Visibility:   it.Visibility(),
	}
}

func (d itemDoc) toDomain() domitem.Item {
	return domitem.Reconstruct(
		d.ID, d.OwnerID, d.Title, d.Caption, d.Tags, d.SearchTokens,
		d.LikeCount, time.UnixMilli(d.CreatedAt), d.ViewPath, d.ThumbPath, d.Visibility,
	)
}

// parseJSONGetResult unwraps the one-element array JSON.GET returns for "$".
func parseJSONGetResult(raw []byte) (itemDoc, error) {
	var docs []itemDoc
	if err := json.Unmarshal(raw, &docs); err != nil {
		return itemDoc{}, fmt.Errorf("unmarshal item: %w", err)
	}
	if len(docs) == 0 {
		return itemDoc{}, fmt.Errorf("empty JSON.GET result")
	}
	return docs[0], nil
}

// decodeEntry hydrates a search hit; FT.SEARCH on a JSON index returns the document under "$".
func decodeEntry(e db.SearchEntry) (page.Position, domitem.Item, error) {
	raw := e.Doc()
	if len(raw) == 0 {
		return page.Position{}, domitem.Item{}, fmt.Errorf("hit %s has no document", e.Key)
	}
	var d itemDoc
	if err := json.Unmarshal(raw, &d); err != nil {
		return page.Position{}, domitem.Item{}, fmt.Errorf("unmarshal hit: %w", err)
	}
	return page.Position{CreatedAt: d.CreatedAt, ID: d.ID}, d.toDomain(), nil
}
