package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quillhq/kbingest/internal/config"
	"github.com/quillhq/kbingest/internal/database"
	"github.com/quillhq/kbingest/internal/domain"
	"github.com/quillhq/kbingest/internal/service"
)

// IngestCmd returns the one-shot ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest a single knowledge source",
		Long:  "Run the chunk-embed-store pipeline for one source and exit",
		RunE:  runIngest,
	}

	cmd.Flags().StringP("source", "s", "", "Source ID (required)")
	cmd.Flags().StringP("bot", "b", "", "Bot ID (required)")
	cmd.Flags().StringP("kind", "k", "", "Source kind (file, structured-info, qa)")
	cmd.Flags().StringP("file", "f", "", "Read inline content from a local markdown file")
	cmd.MarkFlagRequired("source")
	cmd.MarkFlagRequired("bot")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	svc, _, err := buildIngestionService(ctx, cfg, pool)
	if err != nil {
		return err
	}

	sourceID, _ := cmd.Flags().GetString("source")
	botID, _ := cmd.Flags().GetString("bot")
	kind, _ := cmd.Flags().GetString("kind")

	var content string
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		content = string(data)
	}

	result, err := svc.Ingest(ctx, service.IngestInput{
		SourceID: sourceID,
		BotID:    botID,
		Kind:     domain.SourceKind(kind),
		Content:  content,
	})
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("source %s ingested: %d chunks, %d chars, %d tokens\n",
		sourceID, result.ChunkCount, result.CharCount, result.TokenCount)
	return nil
}
