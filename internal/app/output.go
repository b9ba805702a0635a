package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// outputPath resolves where to write; "" means stdout.
func (a *App) outputPath() string {
	p := strings.TrimSpace(a.cfg.OutputPath)
	if p == "-" {
		return ""
	}
	if p == "" && strings.TrimSpace(a.cfg.OutputDir) != "" {
		return deriveOutputPath(a.cfg.OutputDir, a.cfg.InputPath, a.cfg.Format)
	}
	return p
}

func (a *App) write(doc *Document) error {
	path := a.outputPath()
	if path == "" {
		return writeFormat(a.stdout, a.cfg.Format, doc)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := writeFormat(f, a.cfg.Format, doc); err != nil {
		f.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if a.cfg.Manifest && a.cfg.Format != FormatJSON {
		data, err := marshalManifestJSON(doc.Manifest)
		if err != nil {
			return fmt.Errorf("encode manifest: %w", err)
		}
		if err := os.WriteFile(deriveManifestSidecarPath(path), data, 0o644); err != nil {
			return fmt.Errorf("write manifest: %w", err)
		}
	}
	log.Info().Str("out", path).Str("format", a.cfg.Format).Msg("wrote output")
	return nil
}

func writeFormat(w io.Writer, format string, doc *Document) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(doc)
	case FormatPDF:
		return writePDF(w, doc.Result)
	default:
		_, err := io.WriteString(w, doc.Text+"\n")
		return err
	}
}
