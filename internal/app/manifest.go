package app

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/hyperifyio/pagetext/internal/extract"
)

// Manifest records where an extraction came from and what it produced, so a
// downstream consumer can tell whether two runs saw the same content.
type Manifest struct {
	Input     string `json:"input"`
	FinalURL  string `json:"final_url,omitempty"`
	Rendered  bool   `json:"rendered"`
	FromCache bool   `json:"from_cache"`
	// SHA256 is the digest of the extracted text.
	SHA256      string    `json:"sha256"`
	Chars       int       `json:"chars"`
	Tokens      int       `json:"tokens"`
	TokenBudget int       `json:"token_budget,omitempty"`
	Model       string    `json:"model,omitempty"`
	Generator   string    `json:"generator"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Document is the JSON output: the extraction result plus its manifest.
type Document struct {
	extract.Result
	Manifest Manifest `json:"manifest"`
}

// computeSHA256Hex returns a lowercase hex-encoded SHA-256 of the given text.
func computeSHA256Hex(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// marshalManifestJSON encodes a machine-readable sidecar manifest.
func marshalManifestJSON(m Manifest) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// deriveManifestSidecarPath returns a sidecar JSON path next to the output file.
func deriveManifestSidecarPath(outputPath string) string {
	return outputPath + ".manifest.json"
}
