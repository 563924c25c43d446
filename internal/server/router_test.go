package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/quillhq/kbingest/internal/api/handlers"
	"github.com/quillhq/kbingest/internal/domain"
	"github.com/quillhq/kbingest/internal/service"
)

type MockIngestionService struct {
	mock.Mock
}

func (m *MockIngestionService) Ingest(ctx context.Context, input service.IngestInput) (*service.IngestResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestResult), args.Error(1)
}

type MockSourceReader struct {
	mock.Mock
}

func (m *MockSourceReader) GetByID(ctx context.Context, id string) (*domain.KnowledgeSource, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeSource), args.Error(1)
}

func newTestRouter(svc *MockIngestionService, reader *MockSourceReader) http.Handler {
	return NewRouter(RouterConfig{
		SourceHandler: handlers.NewSourceHandler(svc, reader),
	})
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(new(MockIngestionService), new(MockSourceReader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestRouter_Ingest(t *testing.T) {
	svc := new(MockIngestionService)
	svc.On("Ingest", mock.Anything, service.IngestInput{
		SourceID: "src-1",
		BotID:    "bot-1",
		Kind:     domain.SourceKindStructured,
		Content:  "# Doc",
	}).Return(&service.IngestResult{ChunkCount: 1, CharCount: 5, TokenCount: 3}, nil)

	router := newTestRouter(svc, new(MockSourceReader))

	body := `{"bot_id":"bot-1","kind":"structured-info","content":"# Doc"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/sources/src-1/ingest", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data handlers.IngestResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "src-1", resp.Data.SourceID)
	assert.Equal(t, "completed", resp.Data.Status)
	assert.Equal(t, 1, resp.Data.ChunkCount)
	svc.AssertExpectations(t)
}

func TestRouter_Ingest_MissingBotID(t *testing.T) {
	svc := new(MockIngestionService)
	router := newTestRouter(svc, new(MockSourceReader))

	req := httptest.NewRequest(http.MethodPost, "/v1/sources/src-1/ingest", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
}

func TestRouter_Ingest_InvalidKind(t *testing.T) {
	router := newTestRouter(new(MockIngestionService), new(MockSourceReader))

	body := `{"bot_id":"bot-1","kind":"pdf"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/sources/src-1/ingest", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid source kind")
}

func TestRouter_Ingest_MissingCredential(t *testing.T) {
	svc := new(MockIngestionService)
	svc.On("Ingest", mock.Anything, mock.Anything).
		Return(nil, domain.ErrCredentialNotFound)

	router := newTestRouter(svc, new(MockSourceReader))

	body := `{"bot_id":"bot-1","content":"# Doc"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/sources/src-1/ingest", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "no embedding API key")
}

func TestRouter_GetSource(t *testing.T) {
	reader := new(MockSourceReader)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	reader.On("GetByID", mock.Anything, "src-1").Return(&domain.KnowledgeSource{
		ID:           "src-1",
		BotID:        "bot-1",
		Kind:         domain.SourceKindFile,
		Status:       domain.SourceStatusFailed,
		ErrorMessage: "embedding generation failed",
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil)

	router := newTestRouter(new(MockIngestionService), reader)

	req := httptest.NewRequest(http.MethodGet, "/v1/sources/src-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data handlers.SourceResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "failed", resp.Data.Status)
	assert.Equal(t, "embedding generation failed", resp.Data.ErrorMessage)
}

func TestRouter_GetSource_NotFound(t *testing.T) {
	reader := new(MockSourceReader)
	reader.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrSourceNotFound)

	router := newTestRouter(new(MockIngestionService), reader)

	req := httptest.NewRequest(http.MethodGet, "/v1/sources/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_RequestIDHeader(t *testing.T) {
	router := newTestRouter(new(MockIngestionService), new(MockSourceReader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
