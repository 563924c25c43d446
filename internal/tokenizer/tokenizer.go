// Package tokenizer provides token counting with the cl100k_base vocabulary.
// All chunking size budgets are measured in these tokens.
package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const encodingName = "cl100k_base"

var (
	initOnce sync.Once
	encoder  *tiktoken.Tiktoken
	initErr  error
)

// load initializes the shared encoder once per process. The vocabulary load is
// expensive, so every Counter shares the same instance; tiktoken encoders are
// safe for concurrent use.
func load() (*tiktoken.Tiktoken, error) {
	initOnce.Do(func() {
		encoder, initErr = tiktoken.GetEncoding(encodingName)
	})
	if initErr != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", encodingName, initErr)
	}
	return encoder, nil
}

// Counter counts tokens for chunk sizing.
type Counter struct {
	enc *tiktoken.Tiktoken
}

// New returns a Counter backed by the shared process-wide encoder.
func New() (*Counter, error) {
	enc, err := load()
	if err != nil {
		return nil, err
	}
	return &Counter{enc: enc}, nil
}

// Count returns the number of tokens in text. Empty text counts as 0.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}
