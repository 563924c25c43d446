package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quillhq/kbingest/internal/api"
	"github.com/quillhq/kbingest/internal/domain"
	"github.com/quillhq/kbingest/internal/service"
)

type IngestionService interface {
	Ingest(ctx context.Context, input service.IngestInput) (*service.IngestResult, error)
}

type SourceReader interface {
	GetByID(ctx context.Context, id string) (*domain.KnowledgeSource, error)
}

type SourceHandler struct {
	svc     IngestionService
	sources SourceReader
}

func NewSourceHandler(svc IngestionService, sources SourceReader) *SourceHandler {
	return &SourceHandler{svc: svc, sources: sources}
}

type IngestRequest struct {
	BotID   string `json:"bot_id"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

type IngestResponse struct {
	SourceID   string `json:"source_id"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	CharCount  int    `json:"char_count"`
	TokenCount int    `json:"token_count"`
}

type SourceResponse struct {
	ID           string `json:"id"`
	BotID        string `json:"bot_id"`
	Kind         string `json:"kind"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	CharCount    int    `json:"char_count"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func sourceToResponse(src *domain.KnowledgeSource) *SourceResponse {
	return &SourceResponse{
		ID:           src.ID,
		BotID:        src.BotID,
		Kind:         string(src.Kind),
		Status:       string(src.Status),
		ErrorMessage: src.ErrorMessage,
		CharCount:    src.CharCount,
		CreatedAt:    src.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:    src.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// Ingest runs a source through the pipeline synchronously and reports the
// outcome. Failures still return the mapped error status; the failure is
// also recorded on the source itself.
func (h *SourceHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	sourceID := chi.URLParam(r, "id")

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.BotID == "" {
		api.Error(w, http.StatusBadRequest, "bot_id is required")
		return
	}
	if req.Kind != "" && !domain.IsValidSourceKind(domain.SourceKind(req.Kind)) {
		api.Error(w, http.StatusBadRequest, "invalid source kind")
		return
	}

	result, err := h.svc.Ingest(r.Context(), service.IngestInput{
		SourceID: sourceID,
		BotID:    req.BotID,
		Kind:     domain.SourceKind(req.Kind),
		Content:  req.Content,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, IngestResponse{
		SourceID:   sourceID,
		Status:     string(domain.SourceStatusCompleted),
		ChunkCount: result.ChunkCount,
		CharCount:  result.CharCount,
		TokenCount: result.TokenCount,
	})
}

// Get returns a source's current ingestion status.
func (h *SourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	sourceID := chi.URLParam(r, "id")

	src, err := h.sources.GetByID(r.Context(), sourceID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, sourceToResponse(src))
}
