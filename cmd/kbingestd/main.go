package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quillhq/kbingest/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "kbingestd",
		Short: "Knowledge ingestion daemon and CLI",
		Long:  "Daemon for chunking knowledge sources, generating embeddings, and serving ingestion status",
	}

	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.IngestCmd())
	rootCmd.AddCommand(cli.CredentialCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
