package tokenizer

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// CountTokens returns the cl100k_base token count for text. When the BPE
// ranks cannot be loaded (offline environments), it falls back to a
// words*4/3 estimate.
func CountTokens(text string) int {
	encOnce.Do(func() {
		enc, _ = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
	})

	if enc == nil {
		return estimateTokens(text)
	}
	return len(enc.Encode(text, nil, nil))
}

func estimateTokens(text string) int {
	words := strings.Fields(text)
	n := len(words) * 4 / 3
	if n < 1 {
		n = 1
	}
	return n
}
