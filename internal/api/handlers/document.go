package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/finsight/internal/api"
	"github.com/cloo-solutions/finsight/internal/api/middleware"
	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/pagination"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type DocumentService interface {
	Register(ctx context.Context, extracted *domain.ExtractedDocument) (*domain.Document, error)
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
	ListDocuments(ctx context.Context, sessionID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.Document], error)
	Delete(ctx context.Context, id string) error
}

type DocumentHandler struct {
	svc DocumentService
}

func NewDocumentHandler(svc DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type PageOffsetRequest struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type UploadDocumentRequest struct {
	Filename    string              `json:"filename"`
	Text        string              `json:"text"`
	PageCount   int                 `json:"page_count"`
	PageOffsets []PageOffsetRequest `json:"page_offsets"`
}

type DocumentResponse struct {
	ID         string `json:"id"`
	SessionID  string `json:"session_id"`
	Filename   string `json:"filename"`
	PageCount  int    `json:"page_count"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type DocumentListResponse struct {
	Documents  []*DocumentResponse `json:"documents"`
	NextCursor string              `json:"next_cursor,omitempty"`
	HasMore    bool                `json:"has_more"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:         d.ID,
		SessionID:  d.SessionID,
		Filename:   d.Filename,
		PageCount:  d.PageCount,
		Status:     string(d.Status),
		ChunkCount: d.ChunkCount,
		Error:      d.Error,
		CreatedAt:  d.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:  d.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	var req UploadDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Filename == "" {
		api.Error(w, http.StatusBadRequest, "filename is required")
		return
	}
	if req.Text == "" {
		api.Error(w, http.StatusBadRequest, "text is required")
		return
	}

	offsets := make([]domain.PageOffset, len(req.PageOffsets))
	for i, o := range req.PageOffsets {
		offsets[i] = domain.PageOffset{Start: o.Start, End: o.End}
	}

	doc, err := h.svc.Register(r.Context(), &domain.ExtractedDocument{
		SessionID:   sessionID,
		Filename:    req.Filename,
		Text:        req.Text,
		PageCount:   req.PageCount,
		PageOffsets: offsets,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, documentToResponse(doc))
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	doc, err := h.svc.GetDocument(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	// Documents from other sessions are indistinguishable from absent ones
	if doc.SessionID != middleware.GetSessionID(r.Context()) {
		api.HandleError(w, domain.ErrDocumentNotFound)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	limit := defaultPageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			api.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > maxPageLimit {
			parsed = maxPageLimit
		}
		limit = parsed
	}

	var cursor *pagination.Cursor
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		decoded, err := pagination.DecodeCursor(raw)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "invalid cursor")
			return
		}
		cursor = decoded
	}

	page, err := h.svc.ListDocuments(r.Context(), sessionID, cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	docs := make([]*DocumentResponse, len(page.Items))
	for i, d := range page.Items {
		docs[i] = documentToResponse(d)
	}

	api.Success(w, http.StatusOK, &DocumentListResponse{
		Documents:  docs,
		NextCursor: page.Cursor,
		HasMore:    page.HasMore,
	})
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	doc, err := h.svc.GetDocument(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if doc.SessionID != middleware.GetSessionID(r.Context()) {
		api.HandleError(w, domain.ErrDocumentNotFound)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}
