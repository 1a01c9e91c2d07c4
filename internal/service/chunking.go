package service

import (
	"strings"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/google/uuid"
)

// Rough characters-per-token ratio for English text. Chunk sizes are
// configured in tokens; splitting operates on characters.
const charsPerToken = 4

// ChunkConfig controls document chunking. Size and Overlap are in tokens.
type ChunkConfig struct {
	Size    int
	Overlap int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:    1000,
		Overlap: 200,
	}
}

// Chunker splits extracted documents into overlapping passages, preferring
// boundaries at paragraphs, then lines, then sentences, then words, and
// attributes each chunk to the page(s) its character range falls in.
type Chunker struct {
	sizeChars    int
	overlapChars int
	separators   []string
}

// NewChunker creates a Chunker with the given configuration.
func NewChunker(cfg ChunkConfig) *Chunker {
	if cfg.Size <= 0 {
		cfg = DefaultChunkConfig()
	}
	return &Chunker{
		sizeChars:    cfg.Size * charsPerToken,
		overlapChars: cfg.Overlap * charsPerToken,
		separators:   []string{"\n\n", "\n", ". ", " "},
	}
}

// Chunk splits a document into ordered DocumentChunks with page attribution
// and character offsets. Chunking is deterministic: the same text and
// configuration always yield the same chunk sequence (ids aside).
func (c *Chunker) Chunk(doc *domain.ExtractedDocument) ([]domain.DocumentChunk, error) {
	if doc == nil || strings.TrimSpace(doc.Text) == "" {
		return nil, domain.ErrEmptyDocument
	}

	pieces := c.splitText(doc.Text, c.separators)
	pageMap := buildPageMap(doc)

	chunks := make([]domain.DocumentChunk, 0, len(pieces))
	searchFrom := 0
	for i, piece := range pieces {
		content := strings.TrimSpace(piece)
		if content == "" {
			continue
		}

		charStart := strings.Index(doc.Text[searchFrom:], content)
		if charStart == -1 {
			charStart = searchFrom
		} else {
			charStart += searchFrom
		}
		charEnd := charStart + len(content)

		chunks = append(chunks, domain.DocumentChunk{
			ID:          uuid.NewString(),
			DocumentID:  doc.ID,
			SessionID:   doc.SessionID,
			ChunkIndex:  i,
			Content:     content,
			PageNumbers: pagesForRange(charStart, charEnd, pageMap),
			CharStart:   charStart,
			CharEnd:     charEnd,
			TokenCount:  estimateTokens(content),
		})

		searchFrom = charStart + 1
	}

	if len(chunks) == 0 {
		return nil, domain.ErrEmptyDocument
	}

	// TrimSpace above can leave gaps in ChunkIndex; reassign ordinals.
	for i := range chunks {
		chunks[i].ChunkIndex = i
	}

	return chunks, nil
}

// splitText recursively splits text on the first separator present,
// descending the separator hierarchy for pieces that are still too large,
// then merges adjacent pieces back into chunks of at most sizeChars with
// overlapChars of trailing context carried forward.
func (c *Chunker) splitText(text string, separators []string) []string {
	if len([]rune(text)) <= c.sizeChars {
		return []string{text}
	}

	sep := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if strings.Contains(text, s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}

	splits := splitAfter(text, sep)

	var pieces []string
	for _, s := range splits {
		if len([]rune(s)) <= c.sizeChars {
			pieces = append(pieces, s)
			continue
		}
		if len(rest) == 0 {
			// No finer separator left; take it as-is.
			pieces = append(pieces, s)
			continue
		}
		pieces = append(pieces, c.splitText(s, rest)...)
	}

	return c.mergePieces(pieces)
}

// mergePieces concatenates adjacent pieces into chunks of at most sizeChars.
// Because pieces retain their separators and are contiguous in the source,
// every merged chunk is an exact substring of the original text.
func (c *Chunker) mergePieces(pieces []string) []string {
	var out []string
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		out = append(out, strings.Join(current, ""))

		// Carry trailing pieces as overlap into the next chunk.
		var carry []string
		carryLen := 0
		for i := len(current) - 1; i > 0; i-- {
			pieceLen := len([]rune(current[i]))
			if carryLen+pieceLen > c.overlapChars {
				break
			}
			carry = append([]string{current[i]}, carry...)
			carryLen += pieceLen
		}
		current = carry
		currentLen = carryLen
	}

	for _, p := range pieces {
		pieceLen := len([]rune(p))
		if currentLen+pieceLen > c.sizeChars && currentLen > 0 {
			flush()
		}
		current = append(current, p)
		currentLen += pieceLen
	}
	if len(current) > 0 {
		out = append(out, strings.Join(current, ""))
	}

	return out
}

// splitAfter splits text on sep, keeping the separator attached to the
// preceding piece so concatenation reproduces the input.
func splitAfter(text, sep string) []string {
	if sep == "" {
		return []string{text}
	}
	parts := strings.SplitAfter(text, sep)
	// SplitAfter can yield a trailing empty string when text ends with sep.
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// buildPageMap returns the character range of each page. It prefers the
// extractor-supplied offsets, falls back to reconstructing boundaries from
// the page separator, and finally to an equal distribution estimate.
func buildPageMap(doc *domain.ExtractedDocument) []domain.PageOffset {
	if len(doc.PageOffsets) == doc.PageCount && doc.PageCount > 0 {
		return doc.PageOffsets
	}

	const pageSeparator = "\n\n"
	pages := strings.Split(doc.Text, pageSeparator)
	if len(pages) == doc.PageCount {
		offsets := make([]domain.PageOffset, 0, len(pages))
		pos := 0
		for _, p := range pages {
			offsets = append(offsets, domain.PageOffset{Start: pos, End: pos + len(p)})
			pos += len(p) + len(pageSeparator)
		}
		return offsets
	}

	count := doc.PageCount
	if count <= 0 {
		count = 1
	}
	perPage := len(doc.Text) / count
	if perPage == 0 {
		perPage = len(doc.Text)
	}
	offsets := make([]domain.PageOffset, 0, count)
	for i := 0; i < count; i++ {
		end := (i + 1) * perPage
		if i == count-1 || end > len(doc.Text) {
			end = len(doc.Text)
		}
		offsets = append(offsets, domain.PageOffset{Start: i * perPage, End: end})
	}
	return offsets
}

// pagesForRange returns the 1-indexed pages a character range overlaps.
// Always non-empty: an unmappable range defaults to page 1.
func pagesForRange(start, end int, pageMap []domain.PageOffset) []int {
	var pages []int
	for i, p := range pageMap {
		if start < p.End && end > p.Start {
			pages = append(pages, i+1)
		}
	}
	if len(pages) == 0 {
		pages = []int{1}
	}
	return pages
}

func estimateTokens(s string) int {
	n := len([]rune(s)) / charsPerToken
	if n < 1 {
		n = 1
	}
	return n
}
