package llm

import (
	"log/slog"
	"sync/atomic"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const tokenEncoding = "cl100k_base"

var defaultTokenCounter = &TokenCounter{}

// TokenCounter counts tokens with the cl100k encoding once it is loaded and estimates
// from the rune count until then. Count never loads the encoding itself.
type TokenCounter struct {
	loading atomic.Bool
	enc     atomic.Pointer[tiktoken.Tiktoken]
}

// Preload fetches the encoding in the background. Only the first call does anything.
func (c *TokenCounter) Preload() {
	if !c.loading.CompareAndSwap(false, true) {
		return
	}

	go func() {
		enc, err := tiktoken.GetEncoding(tokenEncoding)
		if err != nil {
			slog.Warn("Failed to load token encoding, estimating", "encoding", tokenEncoding, "error", err)
			return
		}

		c.enc.Store(enc)
		slog.Debug("Token encoding loaded", "encoding", tokenEncoding)
	}()
}

func (c *TokenCounter) Count(text string) int {
	enc := c.enc.Load()
	if enc == nil {
		return estimateTokens(text)
	}

	return len(enc.Encode(text, nil, nil))
}

func estimateTokens(text string) int {
	return utf8.RuneCountInString(text)/4 + 1
}
