// Package artfeed is an embeddable feed engine for a published-artwork
// gallery, backed by Redis 8 (JSON and the query engine) or an in-process
// store.
//
// It covers three write/read paths:
//   - Publish validates an item and indexes its tags and search tokens.
//   - Feed pages items newest first, filtered by tags or a keyword, with
//     opaque cursors that stay stable under timestamp ties.
//   - ToggleLike flips a user's like and the item's counter in one
//     optimistic transaction.
//
// # Usage
//
//	client, err := artfeed.New(ctx,
//	    artfeed.WithRedis("localhost:6379", ""),
//	    artfeed.WithStaticURLs("https://cdn.example.com/art"),
//	)
//	if err != nil { ... }
//	defer client.Close()
//
//	item, _ := client.Publish(ctx, artfeed.Draft{
//	    OwnerID: "u1", Title: "Harbor", Tags: []string{"sea"},
//	    ViewPath: "u1/harbor.jpg", ThumbPath: "u1/harbor_thumb.jpg",
//	})
//	page, _ := client.Feed(ctx, artfeed.Filter{Tags: []string{"sea"}}, "", 20)
//	res, _ := client.ToggleLike(ctx, item.ID, "u2")
//
// Errors unwrap to the sentinels in errors.go; use errors.Is.
package artfeed
