package attach

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultMistralURL   = "https://api.mistral.ai"
	defaultMistralModel = "mistral-ocr-latest"
)

// MistralOCR reads PDFs and images through the Mistral OCR API.
type MistralOCR struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewMistralOCR creates a client. Empty model or baseURL take defaults.
func NewMistralOCR(apiKey, model, baseURL string) *MistralOCR {
	if model == "" {
		model = defaultMistralModel
	}
	if baseURL == "" {
		baseURL = defaultMistralURL
	}
	return &MistralOCR{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

type ocrRequest struct {
	Model    string      `json:"model"`
	Document ocrDocument `json:"document"`
}

type ocrDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

type ocrResponse struct {
	Pages []struct {
		Index    int    `json:"index"`
		Markdown string `json:"markdown"`
	} `json:"pages"`
}

// ExtractText uploads the file inline as a data URL and joins the
// markdown of every returned page.
func (m *MistralOCR) ExtractText(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "attach: read %s", path)
	}

	doc := ocrDocument{}
	encoded := base64.StdEncoding.EncodeToString(data)
	if mime, ok := imageExts[strings.ToLower(filepath.Ext(path))]; ok {
		doc.Type = "image_url"
		doc.ImageURL = "data:" + mime + ";base64," + encoded
	} else {
		doc.Type = "document_url"
		doc.DocumentURL = "data:application/pdf;base64," + encoded
	}

	body, err := json.Marshal(ocrRequest{Model: m.model, Document: doc})
	if err != nil {
		return "", eris.Wrap(err, "attach: marshal mistral request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v1/ocr", bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "attach: create mistral request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "attach: mistral ocr call")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "attach: read mistral response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("attach: mistral ocr returned %d: %s", resp.StatusCode, string(respBody))
	}

	var out ocrResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", eris.Wrap(err, "attach: unmarshal mistral response")
	}

	pages := make([]string, 0, len(out.Pages))
	for _, p := range out.Pages {
		pages = append(pages, p.Markdown)
	}
	return strings.Join(pages, "\n\n"), nil
}
