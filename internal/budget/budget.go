// Package budget estimates how much of a language model's context window an
// extraction will occupy and sizes output to fit.
package budget

import (
	"math"
	"strings"
	"unicode/utf8"
)

// EstimateTokensFromChars converts a character count into an estimated token
// count using a conservative heuristic (~4 chars per token in English). The
// result is always at least 1 when chars > 0.
func EstimateTokensFromChars(charCount int) int {
	if charCount <= 0 {
		return 0
	}
	// Keep conservative to avoid overruns. Use ceiling for safety.
	return int(math.Ceil(float64(charCount) / 4.0))
}

// EstimateTokens returns the estimated token count of a string, counting
// characters rather than bytes.
func EstimateTokens(s string) int {
	return EstimateTokensFromChars(utf8.RuneCountInString(s))
}

// LinesWithinTokens returns how many leading lines fit in maxTokens when
// joined with newlines. maxTokens <= 0 means no limit.
func LinesWithinTokens(lines []string, maxTokens int) int {
	if maxTokens <= 0 {
		return len(lines)
	}
	chars := 0
	for i, l := range lines {
		next := chars + utf8.RuneCountInString(l)
		if i > 0 {
			next++
		}
		if EstimateTokensFromChars(next) > maxTokens {
			return i
		}
		chars = next
	}
	return len(lines)
}

// ModelContextTokens returns an estimated maximum context window for a given
// model name. Unknown models fall back to a sensible default.
func ModelContextTokens(modelName string) int {
	name := strings.ToLower(strings.TrimSpace(modelName))
	if name == "" {
		return 8192
	}
	if v, ok := knownModelMax[name]; ok {
		return v
	}
	// Heuristics based on common suffixes present in model names
	for _, s := range contextSuffixes {
		if strings.HasSuffix(name, s.suffix) {
			return s.tokens
		}
	}
	if strings.Contains(name, "-mini") {
		// Many "mini" models expose large contexts nowadays, assume 128k.
		return 128_000
	}
	// Default conservative context if unknown.
	return 8192
}

var contextSuffixes = []struct {
	suffix string
	tokens int
}{
	{"1m", 1_000_000},
	{"512k", 512_000},
	{"200k", 200_000},
	{"128k", 128_000},
	{"32k", 32_768},
}

// RemainingContext computes the remaining input token budget given a model,
// a desired reservation for output generation, and the tokens already used.
// The result is never negative.
func RemainingContext(modelName string, reservedForOutput int, usedTokens int) int {
	maxCtx := ModelContextTokens(modelName)
	if reservedForOutput < 0 {
		reservedForOutput = 0
	}
	remaining := maxCtx - reservedForOutput - usedTokens
	if remaining < 0 {
		return 0
	}
	return remaining
}

// HeadroomTokens returns a conservative safety headroom: the larger of 5% of
// the model context or a fixed floor of 512 tokens.
func HeadroomTokens(modelName string) int {
	max := ModelContextTokens(modelName)
	dyn := int(math.Ceil(float64(max) * 0.05))
	if dyn < 512 {
		return 512
	}
	return dyn
}

// RemainingContextWithHeadroom computes remaining tokens after accounting for
// output reservation and a conservative headroom for the given model.
func RemainingContextWithHeadroom(modelName string, reservedForOutput int, usedTokens int) int {
	headroom := HeadroomTokens(modelName)
	return RemainingContext(modelName, reservedForOutput+headroom, usedTokens)
}

// knownModelMax contains rough context sizes for common model identifiers.
// These are best-effort and do not need to be exhaustive.
var knownModelMax = map[string]int{
	"gpt-4o":        128_000,
	"gpt-4o-mini":   128_000,
	"gpt-4-turbo":   128_000,
	"gpt-4.1":       1_000_000,
	"gpt-3.5-turbo": 16_384,

	"claude-3-5-sonnet": 200_000,
	"claude-3-opus":     200_000,
	"claude-3-haiku":    200_000,

	"llama-3":   8_192,
	"llama-3.1": 128_000,

	"gpt-oss-20b": 4_096,
}
