package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/quillhq/kbingest/internal/config"
	"github.com/quillhq/kbingest/internal/database"
	"github.com/quillhq/kbingest/internal/domain"
	"github.com/quillhq/kbingest/internal/repository"
	"github.com/quillhq/kbingest/internal/secrets"
)

// CredentialCmd returns the credential management command
func CredentialCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage bot embedding credentials",
		Long:  "Store or remove the embedding API key for a bot",
	}

	cmd.AddCommand(credentialSetCmd())
	cmd.AddCommand(credentialDeleteCmd())

	return cmd
}

func credentialSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store a bot's embedding API key",
		RunE:  runCredentialSet,
	}

	cmd.Flags().StringP("bot", "b", "", "Bot ID (required)")
	cmd.Flags().StringP("key", "k", "", "Embedding API key (required)")
	cmd.MarkFlagRequired("bot")
	cmd.MarkFlagRequired("key")

	return cmd
}

func credentialDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove a bot's embedding API key",
		RunE:  runCredentialDelete,
	}

	cmd.Flags().StringP("bot", "b", "", "Bot ID (required)")
	cmd.MarkFlagRequired("bot")

	return cmd
}

func runCredentialSet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasCredentialKey() {
		return fmt.Errorf("KBINGEST_CREDENTIAL_MASTER_KEY is required")
	}

	cipher, err := secrets.New(cfg.CredentialMasterKey)
	if err != nil {
		return fmt.Errorf("failed to initialize credential cipher: %w", err)
	}

	botID, _ := cmd.Flags().GetString("bot")
	apiKey, _ := cmd.Flags().GetString("key")

	ciphertext, err := cipher.Encrypt(apiKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt API key: %w", err)
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	repo := repository.NewCredentialRepository(pool)
	if err := repo.Upsert(ctx, &domain.Credential{
		ID:         uuid.NewString(),
		BotID:      botID,
		Ciphertext: ciphertext,
	}); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}

	fmt.Printf("credential stored for bot %s\n", botID)
	return nil
}

func runCredentialDelete(cmd *cobra.Command, args []string) error {
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

	botID, _ := cmd.Flags().GetString("bot")

	repo := repository.NewCredentialRepository(pool)
	if err := repo.Delete(ctx, botID); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	fmt.Printf("credential removed for bot %s\n", botID)
	return nil
}
