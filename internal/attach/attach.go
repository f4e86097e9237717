// Package attach extracts the text of message attachments so it can be
// shown to the extraction model alongside the message body.
package attach

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
)

// ErrUnsupported is returned for files whose type has no extractor.
var ErrUnsupported = eris.New("attach: unsupported file type")

// TextExtractor returns the text content of a file.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// Config selects the extractors.
type Config struct {
	// Provider is "local" (pdftotext) or "mistral" (Mistral OCR for PDFs too).
	Provider      string
	PdfToTextPath string
	MistralKey    string
	MistralModel  string
	MistralURL    string
}

// Extractor dispatches on the file extension: PDFs go to pdftotext or
// Mistral OCR, images to Mistral OCR when a key is configured, text and
// CSV files are read as is.
type Extractor struct {
	pdf   TextExtractor
	image TextExtractor
}

var imageExts = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// New builds an Extractor from cfg.
func New(cfg Config) (*Extractor, error) {
	var mistral *MistralOCR
	if cfg.MistralKey != "" {
		mistral = NewMistralOCR(cfg.MistralKey, cfg.MistralModel, cfg.MistralURL)
	}

	ex := &Extractor{}
	switch cfg.Provider {
	case "local", "":
		ex.pdf = NewPdfToText(cfg.PdfToTextPath)
	case "mistral":
		if mistral == nil {
			return nil, eris.New("attach: mistral provider requires mistral_api_key")
		}
		ex.pdf = mistral
	default:
		return nil, eris.Errorf("attach: unknown provider %q", cfg.Provider)
	}
	if mistral != nil {
		ex.image = mistral
	}
	return ex, nil
}

// ExtractText returns the text of the file at path.
func (e *Extractor) ExtractText(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".pdf":
		return e.pdf.ExtractText(ctx, path)
	case imageExts[ext] != "":
		if e.image == nil {
			return "", eris.Wrapf(ErrUnsupported, "no OCR configured for %s", filepath.Base(path))
		}
		return e.image.ExtractText(ctx, path)
	case ext == ".txt" || ext == ".csv":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", eris.Wrapf(err, "attach: read %s", path)
		}
		return string(data), nil
	default:
		return "", eris.Wrapf(ErrUnsupported, "%s", filepath.Base(path))
	}
}

// Fill sets the text of every attachment of msg that has a path but no
// text yet. Failures are logged and leave the text empty; it returns the
// number of attachments filled.
func Fill(ctx context.Context, ex TextExtractor, msg *model.Message) int {
	if ex == nil {
		return 0
	}
	filled := 0
	for i := range msg.Attachments {
		a := &msg.Attachments[i]
		if a.Path == "" || strings.TrimSpace(a.Text) != "" {
			continue
		}
		text, err := ex.ExtractText(ctx, a.Path)
		if err != nil {
			zap.L().Warn("attach: extraction failed",
				zap.String("message_id", msg.ID),
				zap.String("file", a.Filename),
				zap.Error(err),
			)
			continue
		}
		a.Text = strings.TrimSpace(text)
		if a.Text != "" {
			filled++
		}
	}
	return filled
}
