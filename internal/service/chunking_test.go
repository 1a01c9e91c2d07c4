package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/finsight/internal/domain"
)

func testDoc(text string, pageCount int, offsets []domain.PageOffset) *domain.ExtractedDocument {
	return &domain.ExtractedDocument{
		ID:          "doc-1",
		SessionID:   "session-1",
		Filename:    "report.pdf",
		Text:        text,
		PageCount:   pageCount,
		PageOffsets: offsets,
	}
}

func TestChunker_Chunk_EmptyDocument(t *testing.T) {
	chunker := NewChunker(DefaultChunkConfig())

	_, err := chunker.Chunk(nil)
	assert.Equal(t, domain.ErrEmptyDocument, err)

	_, err = chunker.Chunk(testDoc("", 1, nil))
	assert.Equal(t, domain.ErrEmptyDocument, err)

	_, err = chunker.Chunk(testDoc("   \n\t  ", 1, nil))
	assert.Equal(t, domain.ErrEmptyDocument, err)
}

func TestChunker_Chunk_SmallDocumentSingleChunk(t *testing.T) {
	chunker := NewChunker(DefaultChunkConfig())
	text := "Total revenue for fiscal 2024 was $391 billion."

	chunks, err := chunker.Chunk(testDoc(text, 1, nil))

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Content)
	assert.Equal(t, "doc-1", chunks[0].DocumentID)
	assert.Equal(t, "session-1", chunks[0].SessionID)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, 0, chunks[0].CharStart)
	assert.Equal(t, len(text), chunks[0].CharEnd)
	assert.Equal(t, []int{1}, chunks[0].PageNumbers)
	assert.Equal(t, len(text)/charsPerToken, chunks[0].TokenCount)
	assert.NotEmpty(t, chunks[0].ID)
}

func TestChunker_Chunk_SplitsOnParagraphBoundaries(t *testing.T) {
	// Size 4 tokens = 16 chars forces a split at the paragraph break.
	chunker := NewChunker(ChunkConfig{Size: 4, Overlap: 0})
	text := "page one text\n\npage two text"

	chunks, err := chunker.Chunk(testDoc(text, 2, nil))

	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Equal(t, "page one text", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].CharStart)
	assert.Equal(t, []int{1}, chunks[0].PageNumbers)

	assert.Equal(t, "page two text", chunks[1].Content)
	assert.Equal(t, 15, chunks[1].CharStart)
	assert.Equal(t, []int{2}, chunks[1].PageNumbers)

	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, 1, chunks[1].ChunkIndex)
}

func TestChunker_Chunk_OverlapCarriesTrailingContext(t *testing.T) {
	// 40 words of 5 chars each; chunks of 40 chars with 16 chars of overlap.
	chunker := NewChunker(ChunkConfig{Size: 10, Overlap: 4})
	text := strings.TrimSpace(strings.Repeat("word ", 40))

	chunks, err := chunker.Chunk(testDoc(text, 1, nil))

	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, c := range chunks {
		assert.LessOrEqual(t, len(c.Content), chunker.sizeChars, "chunk %d too large", i)
		assert.Equal(t, c.Content, text[c.CharStart:c.CharEnd], "chunk %d offsets wrong", i)
		assert.Equal(t, i, c.ChunkIndex)
	}

	// Consecutive chunks share trailing context
	for i := 0; i < len(chunks)-1; i++ {
		assert.Less(t, chunks[i+1].CharStart, chunks[i].CharEnd,
			"chunk %d should overlap its predecessor", i+1)
	}
}

func TestChunker_Chunk_MultiPageSpan(t *testing.T) {
	chunker := NewChunker(DefaultChunkConfig())
	text := strings.Repeat("a", 50) + strings.Repeat("b", 50)
	offsets := []domain.PageOffset{{Start: 0, End: 50}, {Start: 50, End: 100}}

	chunks, err := chunker.Chunk(testDoc(text, 2, offsets))

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, []int{1, 2}, chunks[0].PageNumbers)
}

func TestChunker_Chunk_EqualDistributionFallback(t *testing.T) {
	// No offsets and no paragraph structure matching the page count:
	// page attribution falls back to an even split of the text.
	chunker := NewChunker(ChunkConfig{Size: 5, Overlap: 0})
	words := make([]string, 16)
	for i := range words {
		words[i] = fmt.Sprintf("w%02d", i)
	}
	text := strings.Join(words, " ") // 79 chars, 4 pages of ~19

	chunks, err := chunker.Chunk(testDoc(text, 4, nil))

	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	first := chunks[0]
	last := chunks[len(chunks)-1]
	assert.Contains(t, first.PageNumbers, 1)
	assert.Contains(t, last.PageNumbers, 4)
}

func TestChunker_Chunk_Deterministic(t *testing.T) {
	chunker := NewChunker(ChunkConfig{Size: 10, Overlap: 4})
	text := strings.TrimSpace(strings.Repeat("alpha beta gamma delta. ", 10))
	doc := testDoc(text, 1, nil)

	first, err := chunker.Chunk(doc)
	require.NoError(t, err)
	second, err := chunker.Chunk(doc)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Content, second[i].Content)
		assert.Equal(t, first[i].CharStart, second[i].CharStart)
		assert.Equal(t, first[i].PageNumbers, second[i].PageNumbers)
	}
}

func TestEstimateTokens_MinimumOne(t *testing.T) {
	assert.Equal(t, 1, estimateTokens("ab"))
	assert.Equal(t, 2, estimateTokens("eight ch"))
}
