package tools

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"google.golang.org/genai"

	errx "github.com/SmartLoan360X/server/internal/core/error"
)

const ocrInstruction = "Transcribe all text printed on this identity document exactly as it appears, " +
	"one line per printed line. Prefix the holder's name line with \"Name: \". Do not add commentary."

// GeminiExtractor uses a Gemini vision model as the text-extraction service.
type GeminiExtractor struct {
	client *genai.Client
	model  string
}

func NewGeminiExtractor(client *genai.Client, model string) (*GeminiExtractor, error) {
	if client == nil {
		return nil, errors.New("genai client is nil")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiExtractor{client: client, model: model}, nil
}

func (g *GeminiExtractor) ExtractText(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	mime := http.DetectContentType(data)
	if mime != "image/png" && mime != "image/jpeg" {
		return "", fmt.Errorf("unsupported image type %q", mime)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(ocrInstruction),
			genai.NewPartFromBytes(data, mime),
		}, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0)),
	})
	if err != nil {
		return "", errx.Extraction(fmt.Errorf("gemini ocr: %w", err))
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("gemini ocr: empty transcription")
	}
	return text, nil
}

var _ TextExtractor = (*GeminiExtractor)(nil)
