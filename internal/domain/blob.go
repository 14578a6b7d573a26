package domain

import "context"

// PlaceholderURL is shown when an image URL cannot be resolved.
const PlaceholderURL = "/static/placeholder.svg"

// URLResolver turns an opaque blob path into a displayable URL.
type URLResolver interface {
	ResolveURL(ctx context.Context, path string) (string, error)
}

// URLResolverFunc adapts a function to URLResolver.
type URLResolverFunc func(ctx context.Context, path string) (string, error)

// ResolveURL calls f.
func (f URLResolverFunc) ResolveURL(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}
