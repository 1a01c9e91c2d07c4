package domain

import "time"

// SearchResult is one ranked hit from the vector index. Ephemeral:
// produced per query, never persisted.
type SearchResult struct {
	ChunkID     string
	DocumentID  string
	Content     string
	PageNumbers []int
	Score       float32
}

// SourceCitation points a generated answer back at the document pages
// that support it. Derived from SearchResult at answer-assembly time.
type SourceCitation struct {
	DocumentID     string
	PageNumbers    []int
	RelevanceScore float32
	Snippet        string
}

// SamePages reports whether two citations reference the same
// (document, page-set) pair. Used for deduplication during synthesis.
func (c SourceCitation) SamePages(other SourceCitation) bool {
	if c.DocumentID != other.DocumentID || len(c.PageNumbers) != len(other.PageNumbers) {
		return false
	}
	for i, p := range c.PageNumbers {
		if other.PageNumbers[i] != p {
			return false
		}
	}
	return true
}

// QueryResult is the outcome of one query or sub-query.
// A result with Success=false carries no citations.
type QueryResult struct {
	Success         bool
	Answer          string
	Sources         []SourceCitation
	ChunksRetrieved int
	QueryTime       time.Duration
	ErrorMessage    string
}
