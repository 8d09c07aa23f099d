package synth

import (
	"strings"

	"noteflow/internal/util"
)

// ApproxTokens estimates the token count of a text as runes/4.
func ApproxTokens(text string) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

// Splitter cuts source text into chunks sized by approximate tokens.
type Splitter struct {
	ChunkTokens   int
	OverlapTokens int
}

func NewSplitter(chunkTokens, overlapTokens int) Splitter {
	if chunkTokens <= 0 {
		chunkTokens = 8192
	}
	if overlapTokens < 0 || overlapTokens >= chunkTokens {
		overlapTokens = chunkTokens / 16
	}
	return Splitter{ChunkTokens: chunkTokens, OverlapTokens: overlapTokens}
}

func (s Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return util.ChunkText(text, s.ChunkTokens*4, s.OverlapTokens*4)
}
