// Package token builds the bounded n-gram token set used for keyword search.
//
// The same Tokenize function runs at publish time (to index an item) and at
// query time (to turn a keyword into index keys), so both sides always agree.
package token

import (
	"sort"
	"strings"
	"unicode"
)

const (
	// MaxTokens caps the token set stored on an item.
	MaxTokens = 200
	// MaxQueryTokens caps the tokens a keyword query may filter on.
	MaxQueryTokens = 10
)

// Tokenize returns the sorted, deduplicated token set for text, truncated to MaxTokens.
//
// Tokens are the union of:
//   - every ASCII word (letters, digits, underscore) plus its 2- and 3-rune substrings;
//   - every 2- and 3-rune substring of the whole text with white space removed.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	set := make(map[string]struct{})

	for _, w := range strings.FieldsFunc(lower, isSeparator) {
		set[w] = struct{}{}
		addGrams(set, []rune(w))
	}

	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, lower)
	addGrams(set, []rune(stripped))

	if len(set) == 0 {
		return nil
	}

	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	if len(out) > MaxTokens {
		out = out[:MaxTokens]
	}
	return out
}

// QueryTokens tokenizes a keyword and keeps the first MaxQueryTokens tokens.
func QueryTokens(keyword string) []string {
	toks := Tokenize(keyword)
	if len(toks) > MaxQueryTokens {
		toks = toks[:MaxQueryTokens]
	}
	return toks
}

// SearchText joins the fields indexed for an item.
func SearchText(title, caption string, tags []string) string {
	return title + "\n" + caption + "\n" + strings.Join(tags, " ")
}

func addGrams(set map[string]struct{}, rs []rune) {
	for n := 2; n <= 3; n++ {
		for i := 0; i+n <= len(rs); i++ {
			set[string(rs[i:i+n])] = struct{}{}
		}
	}
}

// isSeparator mirrors the classic \W class: anything but [A-Za-z0-9_].
func isSeparator(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		return false
	}
	return true
}
