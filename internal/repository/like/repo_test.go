package like

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/artfeed/internal/db"
	"github.com/kailas-cloud/artfeed/internal/db/memory"
	"github.com/kailas-cloud/artfeed/internal/domain"
	domlike "github.com/kailas-cloud/artfeed/internal/domain/like"
	"github.com/kailas-cloud/artfeed/internal/repository/item"
)

var at = time.UnixMilli(1700000000000)

func runWith(tx *fakeTx) func(context.Context, []string, func(context.Context, db.Tx) error) error {
	return func(ctx context.Context, _ []string, fn func(context.Context, db.Tx) error) error {
		return fn(ctx, tx)
	}
}

// hashTag returns the part of key a Redis cluster hashes to pick a slot.
func hashTag(key string) string {
	open := strings.IndexByte(key, '{')
	if open < 0 {
		return key
	}
	end := strings.IndexByte(key[open+1:], '}')
	if end <= 0 {
		return key
	}
	return key[open+1 : open+1+end]
}

// --- keys ---

func TestKey_SharesItemSlot(t *testing.T) {
	for _, id := range []string{"i-1", "01JB2X", "a:b", "x{y", "p}q", "{z}"} {
		t.Run(id, func(t *testing.T) {
			itemTag := hashTag(item.Key(id))
			likeTag := hashTag(Key(id, "u-1"))
			if itemTag != likeTag {
				t.Errorf("item slot %q, like slot %q", itemTag, likeTag)
			}
			if itemTag == item.Key(id) {
				t.Errorf("key %q has no hash tag", item.Key(id))
			}
		})
	}
}

func TestKey_Layout(t *testing.T) {
	if got := Key("i-1", "u-1"); got != "artfeed:like:{i-1}:u-1" {
		t.Errorf("Key = %q", got)
	}
	if !strings.HasPrefix(Key("i-1", "u-1"), Prefix()) {
		t.Error("membership key outside the indexed prefix")
	}
}

// --- EnsureIndex ---

func TestEnsureIndex_Creates(t *testing.T) {
	repo, ms := newTestRepo(t)
	var def *db.IndexDefinition
	ms.createIndexFn = func(_ context.Context, d *db.IndexDefinition) error {
		def = d
		return nil
	}

	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def == nil || def.Name != IndexName {
		t.Fatalf("unexpected index: %+v", def)
	}
	if len(def.Prefixes) != 1 || def.Prefixes[0] != Prefix() {
		t.Errorf("unexpected prefixes: %v", def.Prefixes)
	}
	f, ok := def.Field(FieldItemID)
	if !ok || f.Type != db.IndexFieldTag || !f.TagCaseSensitive {
		t.Errorf("unexpected itemId field: %+v", f)
	}
}

func TestEnsureIndex_AlreadyThere(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.indexExistsFn = func(context.Context, string) (bool, error) { return true, nil }
	ms.createIndexFn = func(context.Context, *db.IndexDefinition) error {
		t.Error("index must not be recreated")
		return nil
	}
	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureIndex_RaceLostIsFine(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.createIndexFn = func(context.Context, *db.IndexDefinition) error { return db.ErrIndexExists }
	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- Toggle ---

func TestToggle_Like(t *testing.T) {
	repo, ms := newTestRepo(t)
	tx := &fakeTx{count: "[2]"}
	var watched []string
	ms.runTxFn = func(ctx context.Context, watch []string, fn func(context.Context, db.Tx) error) error {
		watched = watch
		return fn(ctx, tx)
	}

	out, err := repo.Toggle(context.Background(), "i-1", "u-1", at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Liked || out.LikeCount != 3 || out.ItemID != "i-1" {
		t.Errorf("unexpected outcome: %+v", out)
	}
	if len(watched) != 2 || watched[0] != "artfeed:item:{i-1}" || watched[1] != "artfeed:like:{i-1}:u-1" {
		t.Errorf("unexpected watch set: %v", watched)
	}
	got := tx.json["artfeed:like:{i-1}:u-1 $"]
	for _, want := range []string{`"itemId":"i-1"`, `"userId":"u-1"`, `"createdAt":1700000000000`} {
		if !strings.Contains(got, want) {
			t.Errorf("membership %s lacks %s", got, want)
		}
	}
	if got := tx.json["artfeed:item:{i-1} $.likeCount"]; got != "3" {
		t.Errorf("counter write = %q, want 3", got)
	}
}

func TestToggle_Unlike(t *testing.T) {
	repo, ms := newTestRepo(t)
	tx := &fakeTx{count: "[1]", member: true}
	ms.runTxFn = runWith(tx)

	out, err := repo.Toggle(context.Background(), "i-1", "u-1", at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Liked || out.LikeCount != 0 {
		t.Errorf("unexpected outcome: %+v", out)
	}
	if len(tx.dels) != 1 || tx.dels[0] != "artfeed:like:{i-1}:u-1" {
		t.Errorf("unexpected deletes: %v", tx.dels)
	}
	if got := tx.json["artfeed:item:{i-1} $.likeCount"]; got != "0" {
		t.Errorf("counter write = %q, want 0", got)
	}
}

func TestToggle_ItemMissing(t *testing.T) {
	repo, ms := newTestRepo(t)
	tx := &fakeTx{}
	ms.runTxFn = runWith(tx)

	_, err := repo.Toggle(context.Background(), "gone", "u-1", at)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(tx.dels)+len(tx.json) != 0 {
		t.Error("nothing may be queued for a missing item")
	}
}

func TestToggle_InvariantViolation(t *testing.T) {
	repo, ms := newTestRepo(t)
	tx := &fakeTx{count: "[0]", member: true}
	ms.runTxFn = runWith(tx)

	_, err := repo.Toggle(context.Background(), "i-1", "u-1", at)
	if !errors.Is(err, domain.ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}
	if len(tx.json) != 0 {
		t.Error("counter must not be written")
	}
}

func TestToggle_Contended(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.runTxFn = func(context.Context, []string, func(context.Context, db.Tx) error) error {
		return db.ErrTxConflict
	}

	_, err := repo.Toggle(context.Background(), "i-1", "u-1", at)
	if !errors.Is(err, domlike.ErrContended) {
		t.Fatalf("expected ErrContended, got %v", err)
	}
}

func TestToggle_MissingCounterCountsAsZero(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.runTxFn = runWith(&fakeTx{count: "[]"})

	out, err := repo.Toggle(context.Background(), "i-1", "u-1", at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.LikeCount != 1 {
		t.Errorf("LikeCount = %d, want 1", out.LikeCount)
	}
}

// --- Audit ---

func TestAudit(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.jsonGetFn = func(_ context.Context, key string, _ ...string) ([]byte, error) {
		if key != "artfeed:item:{i*1}" {
			t.Errorf("unexpected key: %s", key)
		}
		return []byte("[2]"), nil
	}
	ms.searchCountFn = func(_ context.Context, q *db.SortedQuery) (int, error) {
		if q.IndexName != IndexName {
			t.Errorf("unexpected index: %s", q.IndexName)
		}
		must := q.Filters.Must()
		if len(must) != 1 || must[0].Key() != FieldItemID || must[0].Values()[0] != "i*1" {
			t.Errorf("unexpected filter: %+v", must)
		}
		return 2, nil
	}

	a, err := repo.Audit(context.Background(), "i*1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.Consistent() || a.Members != 2 {
		t.Errorf("unexpected audit: %+v", a)
	}
}

func TestAudit_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)
	if _, err := repo.Audit(context.Background(), "gone"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAudit_CountError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.jsonGetFn = func(context.Context, string, ...string) ([]byte, error) { return []byte("[1]"), nil }
	ms.searchCountFn = func(context.Context, *db.SortedQuery) (int, error) {
		return 0, &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
	}
	if _, err := repo.Audit(context.Background(), "i-1"); !errors.Is(err, db.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

// --- memory engine ---

func TestToggle_MemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	if err := s.JSONSet(ctx, item.Key("i-1"), "$", []byte(`{"id":"i-1","likeCount":0}`)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	repo := New(s)
	if err := repo.EnsureIndex(ctx); err != nil {
		t.Fatalf("ensure index: %v", err)
	}

	out, err := repo.Toggle(ctx, "i-1", "u-1", at)
	if err != nil || !out.Liked || out.LikeCount != 1 {
		t.Fatalf("first toggle: %+v %v", out, err)
	}
	liked, err := repo.Liked(ctx, "i-1", "u-1")
	if err != nil || !liked {
		t.Fatalf("Liked = %v, %v", liked, err)
	}
	a, err := repo.Audit(ctx, "i-1")
	if err != nil || !a.Consistent() || a.LikeCount != 1 || a.Members != 1 {
		t.Fatalf("audit after like: %+v %v", a, err)
	}

	out, err = repo.Toggle(ctx, "i-1", "u-1", at)
	if err != nil || out.Liked || out.LikeCount != 0 {
		t.Fatalf("second toggle: %+v %v", out, err)
	}
	liked, _ = repo.Liked(ctx, "i-1", "u-1")
	if liked {
		t.Error("expected membership removed")
	}
	a, err = repo.Audit(ctx, "i-1")
	if err != nil || !a.Consistent() || a.Members != 0 {
		t.Fatalf("audit after unlike: %+v %v", a, err)
	}
}

func TestAudit_MemoryCountsOnlyOwnItem(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	for _, id := range []string{"i-1", "I-1"} {
		if err := s.JSONSet(ctx, item.Key(id), "$", []byte(`{"likeCount":0}`)); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	repo := New(s)
	if err := repo.EnsureIndex(ctx); err != nil {
		t.Fatalf("ensure index: %v", err)
	}
	for _, u := range []string{"u-1", "u-2"} {
		if _, err := repo.Toggle(ctx, "I-1", u, at); err != nil {
			t.Fatalf("toggle: %v", err)
		}
	}
	if _, err := repo.Toggle(ctx, "i-1", "u-1", at); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	a, err := repo.Audit(ctx, "i-1")
	if err != nil || a.Members != 1 || !a.Consistent() {
		t.Fatalf("audit: %+v %v", a, err)
	}
}
