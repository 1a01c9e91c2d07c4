package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/finsight/internal/api/handlers"
	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/pagination"
	"github.com/cloo-solutions/finsight/internal/service"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Register(ctx context.Context, extracted *domain.ExtractedDocument) (*domain.Document, error) {
	args := m.Called(ctx, extracted)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) ListDocuments(ctx context.Context, sessionID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.Document], error) {
	args := m.Called(ctx, sessionID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pagination.PageResult[*domain.Document]), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockQueryAnswerer struct {
	mock.Mock
}

func (m *MockQueryAnswerer) Answer(ctx context.Context, question, sessionID string) (*service.AnswerOutcome, error) {
	args := m.Called(ctx, question, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AnswerOutcome), args.Error(1)
}

func setupRouter() (http.Handler, *MockDocumentService, *MockQueryAnswerer) {
	docSvc := new(MockDocumentService)
	querySvc := new(MockQueryAnswerer)

	cfg := RouterConfig{
		DocumentHandler: handlers.NewDocumentHandler(docSvc),
		QueryHandler:    handlers.NewQueryHandler(querySvc),
	}

	return NewRouter(cfg), docSvc, querySvc
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_SessionRoutes_RequireSessionHeader(t *testing.T) {
	router, _, _ := setupRouter()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/documents"},
		{http.MethodGet, "/documents"},
		{http.MethodGet, "/documents/doc-1"},
		{http.MethodDelete, "/documents/doc-1"},
		{http.MethodPost, "/queries"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "X-Session-ID")
		})
	}
}

func TestRouter_UploadDocument(t *testing.T) {
	router, docSvc, _ := setupRouter()

	docSvc.On("Register", mock.Anything, mock.MatchedBy(func(d *domain.ExtractedDocument) bool {
		return d.SessionID == "session-1" && d.Filename == "report.pdf"
	})).Return(&domain.Document{
		ID:        "doc-1",
		SessionID: "session-1",
		Filename:  "report.pdf",
		PageCount: 2,
		Status:    domain.DocumentStatusPending,
	}, nil).Once()

	body := `{"filename": "report.pdf", "text": "Q3 revenue was $12.5M.", "page_count": 2}`
	req := httptest.NewRequest(http.MethodPost, "/documents", strings.NewReader(body))
	req.Header.Set("X-Session-ID", "session-1")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	docSvc.AssertExpectations(t)
}

func TestRouter_GetDocument_CrossSessionLooksAbsent(t *testing.T) {
	router, docSvc, _ := setupRouter()

	docSvc.On("GetDocument", mock.Anything, "doc-1").
		Return(&domain.Document{ID: "doc-1", SessionID: "session-other"}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/documents/doc-1", nil)
	req.Header.Set("X-Session-ID", "session-1")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Query(t *testing.T) {
	router, _, querySvc := setupRouter()

	querySvc.On("Answer", mock.Anything, "What was Q3 revenue?", "session-1").
		Return(&service.AnswerOutcome{
			Result: &domain.QueryResult{
				Success:         true,
				Answer:          "Q3 revenue was $12.5M [Page 4].",
				ChunksRetrieved: 3,
			},
			QueryType:  "simple",
			AgentCalls: []string{"router"},
		}, nil).Once()

	body := `{"question": "What was Q3 revenue?"}`
	req := httptest.NewRequest(http.MethodPost, "/queries", strings.NewReader(body))
	req.Header.Set("X-Session-ID", "session-1")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data handlers.QueryResponse `json:"data"`
	}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.True(t, resp.Data.Success)
	assert.Equal(t, "Q3 revenue was $12.5M [Page 4].", resp.Data.Answer)
	assert.Equal(t, "simple", resp.Data.QueryType)
}

func TestRouter_Query_EmptyQuestion(t *testing.T) {
	router, _, querySvc := setupRouter()

	req := httptest.NewRequest(http.MethodPost, "/queries", strings.NewReader(`{"question": ""}`))
	req.Header.Set("X-Session-ID", "session-1")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	querySvc.AssertNotCalled(t, "Answer")
}
