package domain

import (
	"fmt"
	"time"
)

// SourceKind represents the kind of content a knowledge source holds
type SourceKind string

const (
	SourceKindFile       SourceKind = "file"
	SourceKindStructured SourceKind = "structured-info"
	SourceKindQA         SourceKind = "qa"
)

// SourceStatus represents the ingestion lifecycle status of a knowledge source
type SourceStatus string

const (
	SourceStatusPending    SourceStatus = "pending"
	SourceStatusProcessing SourceStatus = "processing"
	SourceStatusCompleted  SourceStatus = "completed"
	SourceStatusFailed     SourceStatus = "failed"
)

// KnowledgeSource represents one ingestible unit owned by a bot.
// Status is mutated only by the ingestion orchestrator: processing is set
// before any chunking or embedding work, and exactly one of completed/failed
// follows within a run.
type KnowledgeSource struct {
	ID           string
	BotID        string
	Kind         SourceKind
	Content      string // inline content for structured-info and qa sources
	FileKey      string // object storage key for file sources
	Status       SourceStatus
	ErrorMessage string
	CharCount    int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewKnowledgeSource creates a new KnowledgeSource instance in pending state
func NewKnowledgeSource(id, botID string, kind SourceKind, content, fileKey string, createdAt time.Time) *KnowledgeSource {
	return &KnowledgeSource{
		ID:        id,
		BotID:     botID,
		Kind:      kind,
		Content:   content,
		FileKey:   fileKey,
		Status:    SourceStatusPending,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// ValidateKnowledgeSource validates a KnowledgeSource instance
func ValidateKnowledgeSource(s *KnowledgeSource) error {
	if s == nil {
		return fmt.Errorf("knowledge source cannot be nil")
	}

	if s.ID == "" {
		return fmt.Errorf("knowledge source ID is required")
	}

	if s.BotID == "" {
		return fmt.Errorf("knowledge source BotID is required")
	}

	if !IsValidSourceKind(s.Kind) {
		return fmt.Errorf("knowledge source Kind is invalid: %s", s.Kind)
	}

	if !isValidSourceStatus(s.Status) {
		return fmt.Errorf("knowledge source Status is invalid: %s", s.Status)
	}

	if s.Kind == SourceKindFile && s.FileKey == "" && s.Content == "" {
		return fmt.Errorf("file knowledge source requires a FileKey or inline Content")
	}

	return nil
}

// IsValidSourceKind checks if a SourceKind is valid
func IsValidSourceKind(k SourceKind) bool {
	switch k {
	case SourceKindFile, SourceKindStructured, SourceKindQA:
		return true
	}
	return false
}

// isValidSourceStatus checks if a SourceStatus is valid
func isValidSourceStatus(s SourceStatus) bool {
	switch s {
	case SourceStatusPending, SourceStatusProcessing, SourceStatusCompleted, SourceStatusFailed:
		return true
	}
	return false
}
