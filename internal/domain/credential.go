package domain

import (
	"fmt"
	"time"
)

// Credential is a bot-scoped embedding provider secret. The API key is stored
// encrypted; only the ingestion orchestrator decrypts it, and only for the
// duration of a run. Plaintext keys are never persisted.
type Credential struct {
	ID         string
	BotID      string
	Ciphertext string // base64 AES-GCM ciphertext of the provider API key
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ValidateCredential validates a Credential instance
func ValidateCredential(c *Credential) error {
	if c == nil {
		return fmt.Errorf("credential cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("credential ID is required")
	}

	if c.BotID == "" {
		return fmt.Errorf("credential BotID is required")
	}

	if c.Ciphertext == "" {
		return fmt.Errorf("credential Ciphertext is required")
	}

	return nil
}
