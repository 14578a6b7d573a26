package feed

import (
	"fmt"
	"sort"
	"strings"

	domitem "github.com/kailas-cloud/artfeed/internal/domain/item"
	"github.com/kailas-cloud/artfeed/internal/domain/page"
	"github.com/kailas-cloud/artfeed/internal/domain/search/filter"
	"github.com/kailas-cloud/artfeed/internal/domain/search/mode"
	"github.com/kailas-cloud/artfeed/internal/domain/token"
)

// Filter is the caller's feed selection.
type Filter struct {
	Tags    []string
	Keyword string
}

// Plan is an executable feed query.
type Plan struct {
	Mode mode.Mode
	// Primary is the predicate the store evaluates.
	Primary filter.Expression
	// RequireTags must all be on an item; checked in process after the store query.
	RequireTags []string
	// Tokens are the keyword tokens in keyword mode.
	Tokens []string
	// Scope fingerprints the plan; cursors only work within one scope.
	Scope string
}

// Accepts reports whether an item fetched by the primary predicate belongs on the page.
func (p *Plan) Accepts(it *domitem.Item) bool {
	return len(p.RequireTags) == 0 || it.HasAllTags(p.RequireTags)
}

// NewPlan chooses the query mode with precedence tag > keyword > default.
// A keyword without any token plans exactly like no filter at all.
func NewPlan(f Filter) (Plan, error) {
	tags, err := domitem.NormalizeTags(f.Tags)
	if err != nil {
		return Plan{}, fmt.Errorf("plan: %w", err)
	}

	if len(tags) > 0 {
		cond, err := filter.NewMatch(domitem.FieldTags, tags[0])
		if err != nil {
			return Plan{}, fmt.Errorf("plan: %w", err)
		}
		p := Plan{Mode: mode.Tag, Primary: filter.All(cond)}
		rest := append([]string(nil), tags[1:]...)
		sort.Strings(rest)
		if len(rest) > 0 {
			p.RequireTags = rest
		}
		p.Scope = page.Scope(string(mode.Tag), tags[0], strings.Join(rest, ","))
		return p, nil
	}

	if toks := token.QueryTokens(f.Keyword); len(toks) > 0 {
		cond, err := filter.NewAnyOf(domitem.FieldSearchTokens, toks...)
		if err != nil {
			return Plan{}, fmt.Errorf("plan: %w", err)
		}
		return Plan{
			Mode:    mode.Keyword,
			Primary: filter.All(cond),
			Tokens:  toks,
			Scope:   page.Scope(string(mode.Keyword), strings.Join(toks, ",")),
		}, nil
	}

	return Plan{Mode: mode.Default, Scope: page.Scope(string(mode.Default))}, nil
}
