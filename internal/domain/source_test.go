package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateKnowledgeSource_Valid(t *testing.T) {
	now := time.Now().UTC()
	s := NewKnowledgeSource("src-1", "bot-1", SourceKindStructured, "some content", "", now)

	err := ValidateKnowledgeSource(s)

	assert.NoError(t, err)
	assert.Equal(t, SourceStatusPending, s.Status)
}

func TestValidateKnowledgeSource_Nil(t *testing.T) {
	err := ValidateKnowledgeSource(nil)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be nil")
}

func TestValidateKnowledgeSource_MissingFields(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name    string
		source  *KnowledgeSource
		wantErr string
	}{
		{
			name:    "missing ID",
			source:  NewKnowledgeSource("", "bot-1", SourceKindQA, "Q: a\nA: b", "", now),
			wantErr: "ID is required",
		},
		{
			name:    "missing BotID",
			source:  NewKnowledgeSource("src-1", "", SourceKindQA, "Q: a\nA: b", "", now),
			wantErr: "BotID is required",
		},
		{
			name:    "invalid kind",
			source:  NewKnowledgeSource("src-1", "bot-1", SourceKind("pdf"), "text", "", now),
			wantErr: "Kind is invalid",
		},
		{
			name:    "file source without key or content",
			source:  NewKnowledgeSource("src-1", "bot-1", SourceKindFile, "", "", now),
			wantErr: "FileKey or inline Content",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKnowledgeSource(tt.source)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateKnowledgeSource_InvalidStatus(t *testing.T) {
	now := time.Now().UTC()
	s := NewKnowledgeSource("src-1", "bot-1", SourceKindStructured, "content", "", now)
	s.Status = SourceStatus("archived")

	err := ValidateKnowledgeSource(s)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Status is invalid")
}

func TestValidateEmbeddingRecord(t *testing.T) {
	rec := &EmbeddingRecord{
		SourceID:   "src-1",
		BotID:      "bot-1",
		ChunkIndex: 0,
		Content:    "chunk text",
		Embedding:  []float32{0.1, 0.2},
	}

	assert.NoError(t, ValidateEmbeddingRecord(rec))

	rec.Embedding = nil
	err := ValidateEmbeddingRecord(rec)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Embedding is required")

	rec.Embedding = []float32{0.1}
	rec.ChunkIndex = -1
	err = ValidateEmbeddingRecord(rec)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ChunkIndex")
}

func TestValidateCredential(t *testing.T) {
	c := &Credential{
		ID:         "cred-1",
		BotID:      "bot-1",
		Ciphertext: "Zm9vYmFy",
	}

	assert.NoError(t, ValidateCredential(c))

	c.Ciphertext = ""
	err := ValidateCredential(c)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Ciphertext is required")
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := assert.AnError
	err := NewDomainErrorWithCause(ErrCodeProvider, "embedding request failed", cause)

	assert.Contains(t, err.Error(), "PROVIDER_ERROR")
	assert.Contains(t, err.Error(), "embedding request failed")
	assert.Equal(t, cause, err.Unwrap())
}
