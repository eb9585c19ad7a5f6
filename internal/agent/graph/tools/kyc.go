package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/SmartLoan360X/server/internal/agent/model"
	logx "github.com/SmartLoan360X/server/pkg/logger"
)

// TextExtractor turns an uploaded image into raw text.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

const maxRawText = 64 * 1024

var (
	panPattern    = regexp.MustCompile(`[A-Z]{5}[0-9]{4}[A-Z]`)
	aadharPattern = regexp.MustCompile(`\b\d{4}[ \t]\d{4}[ \t]\d{4}\b`)
	dobPattern    = regexp.MustCompile(`(?i)(?:DOB|Birth|Binh)\s*[:\s]*\s*(\d{2}/\d{2}/\d{4})`)
	namePattern   = regexp.MustCompile(`(?im)^\s*name\s*[:\-]\s*(.+?)\s*$`)
)

// DocumentVerifier runs extraction and classifies the resulting text.
type DocumentVerifier struct {
	extractor TextExtractor
}

func NewDocumentVerifier(extractor TextExtractor) *DocumentVerifier {
	return &DocumentVerifier{extractor: extractor}
}

// Verify never returns an error: extraction failures, panics included, are
// reported through VerificationResult.Error.
func (v *DocumentVerifier) Verify(ctx context.Context, path string) (res model.VerificationResult) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "kyc").Str("path", path).Msgf("panic recovered: %v", r)
			res = model.VerificationResult{Error: "An error occurred during OCR processing."}
		}
	}()

	if _, err := os.Stat(path); err != nil {
		return model.VerificationResult{Error: fmt.Sprintf("File not found at %s", filepath.Base(path))}
	}

	text, err := v.extractor.ExtractText(ctx, path)
	if err != nil {
		logx.Warn().Err(err).Str("component", "kyc").Str("path", path).Msg("text extraction failed")
		return model.VerificationResult{Error: fmt.Sprintf("An error occurred during OCR processing: %v", err)}
	}
	return ParseDocumentText(text)
}

// ParseDocumentText classifies OCR text as a PAN or Aadhar card. When both
// number patterns appear the Aadhar classification wins.
func ParseDocumentText(text string) model.VerificationResult {
	text = clipText(text, maxRawText)

	doc := &model.Document{RawText: text}
	if m := namePattern.FindStringSubmatch(text); m != nil {
		doc.Name = strings.TrimSpace(m[1])
	}

	if m := panPattern.FindString(text); m != "" {
		doc.Type = model.DocPAN
		doc.Number = m
	}
	if m := aadharPattern.FindString(text); m != "" {
		doc.Type = model.DocAadhar
		doc.Number = m
		if dob := dobPattern.FindStringSubmatch(text); dob != nil {
			doc.DateOfBirth = dob[1]
		}
	}

	if doc.Type == model.DocUnknown {
		return model.VerificationResult{Document: doc, Warning: "Could not confidently determine document type."}
	}
	return model.VerificationResult{Document: doc}
}

// clipText cuts text to at most n bytes without splitting a rune.
func clipText(text string, n int) string {
	if len(text) <= n {
		return text
	}
	for n > 0 && !utf8.RuneStart(text[n]) {
		n--
	}
	return text[:n]
}

// FilenameExtractor is a fixture backend that infers the card from the file
// name and returns canned card text for the parser.
type FilenameExtractor struct{}

func (FilenameExtractor) ExtractText(_ context.Context, path string) (string, error) {
	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.Contains(name, "aadhar"), strings.Contains(name, "aadhaar"):
		return "GOVERNMENT OF INDIA\nName: Priya Sharma\nDOB: 10/05/1992\nFEMALE\n1234 5678 9012\n", nil
	case strings.Contains(name, "pan"):
		return "INCOME TAX DEPARTMENT\nName: Priya Sharma\nPermanent Account Number\nABCDE1234F\n", nil
	default:
		return "", nil
	}
}

var _ TextExtractor = FilenameExtractor{}
