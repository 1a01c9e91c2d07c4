package domain

import "time"

// PageOffset records the character range of one page within the
// concatenated extracted text. Start is inclusive, End exclusive.
type PageOffset struct {
	Start int
	End   int
}

// ExtractedDocument is the unit handed over by the ingestion pipeline:
// already-extracted text plus enough page geometry to attribute chunks
// back to pages. PDF parsing happens upstream and never enters this service.
type ExtractedDocument struct {
	ID          string
	SessionID   string
	Filename    string
	Text        string
	PageCount   int
	PageOffsets []PageOffset
	CreatedAt   time.Time
}

// DocumentStatus tracks a document through the ingest pipeline.
type DocumentStatus string

const (
	DocumentStatusPending DocumentStatus = "pending"
	DocumentStatusIndexed DocumentStatus = "indexed"
	DocumentStatusFailed  DocumentStatus = "failed"
)

// Document is the stored record of an ingested document.
type Document struct {
	ID         string
	SessionID  string
	Filename   string
	PageCount  int
	Status     DocumentStatus
	ChunkCount int
	Error      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DocumentChunk is a contiguous slice of a document's text, the unit of
// retrieval. Immutable once created except for embedding assignment.
type DocumentChunk struct {
	ID          string
	DocumentID  string
	SessionID   string
	ChunkIndex  int
	Content     string
	PageNumbers []int
	CharStart   int
	CharEnd     int
	TokenCount  int
	Embedding   []float32
	CreatedAt   time.Time
}

// IngestResult summarizes one pass of the chunk->embed->upsert pipeline.
type IngestResult struct {
	Success        bool
	DocumentID     string
	ChunksCreated  int
	ChunksIndexed  int
	ProcessingTime time.Duration
	ErrorMessage   string
}

func ValidateExtractedDocument(d *ExtractedDocument) error {
	if d == nil {
		return NewDomainError(ErrCodeValidation, "document cannot be nil")
	}
	if d.ID == "" {
		return NewDomainError(ErrCodeValidation, "document ID is required")
	}
	if d.SessionID == "" {
		return NewDomainError(ErrCodeValidation, "session ID is required")
	}
	if d.Filename == "" {
		return NewDomainError(ErrCodeValidation, "filename is required")
	}
	if d.PageCount <= 0 {
		return NewDomainError(ErrCodeValidation, "page count must be positive")
	}
	return nil
}
