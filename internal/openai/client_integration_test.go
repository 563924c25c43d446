//go:build integration

package openai

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_CreateEmbeddings_RealAPI(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set, skipping integration test")
	}

	client := NewClient(apiKey)
	ctx := context.Background()
	texts := []string{
		"This is the first test passage.",
		"This is the second test passage.",
	}

	vectors, err := client.CreateEmbeddings(ctx, texts)

	require.NoError(t, err)
	require.Len(t, vectors, 2)
	for _, v := range vectors {
		assert.Len(t, v, DefaultEmbeddingDimensions)
	}
}
