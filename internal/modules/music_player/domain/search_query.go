package domain

import (
	"strings"
)

// SearchSource is the Lavalink search prefix used for plain-text queries.
type SearchSource string

const (
	SourceYouTube      SearchSource = "ytsearch"
	SourceYouTubeMusic SearchSource = "ytmsearch"
	SourceSoundCloud   SearchSource = "scsearch"
	SourceDirect       SearchSource = "" // direct URL, no prefix
)

// SearchQuery is a normalized user query.
type SearchQuery struct {
	Query  string
	Source SearchSource
}

// NewSearchQuery creates a SearchQuery from user input.
// URLs are passed through; anything else is searched on fallback.
func NewSearchQuery(input string, fallback SearchSource) SearchQuery {
	input = strings.TrimSpace(input)

	if isURL(input) {
		return SearchQuery{Query: input, Source: SourceDirect}
	}
	if fallback == SourceDirect {
		fallback = SourceYouTube
	}
	return SearchQuery{Query: input, Source: fallback}
}

// IsURL returns true if the query is a direct link.
func (q SearchQuery) IsURL() bool {
	return q.Source == SourceDirect
}

// Identifier returns the query string formatted for Lavalink.
func (q SearchQuery) Identifier() string {
	if q.IsURL() {
		return q.Query
	}
	return string(q.Source) + ":" + q.Query
}

// IsValid returns true if the query is not empty.
func (q SearchQuery) IsValid() bool {
	return q.Query != ""
}

func isURL(input string) bool {
	return strings.HasPrefix(input, "http://") ||
		strings.HasPrefix(input, "https://") ||
		strings.HasPrefix(input, "www.")
}
