package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmartLoan360X/server/internal/agent/model"
)

type stubExtractor struct {
	text  string
	err   error
	panic bool
}

func (s stubExtractor) ExtractText(context.Context, string) (string, error) {
	if s.panic {
		panic("decoder crashed")
	}
	return s.text, s.err
}

func touch(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte("img"), 0o600))
	return p
}

func TestParseDocumentText(t *testing.T) {
	t.Run("pan", func(t *testing.T) {
		res := ParseDocumentText("INCOME TAX DEPARTMENT\nName: Priya Sharma\nABCDE1234F")
		require.True(t, res.OK())
		assert.Equal(t, model.DocPAN, res.Document.Type)
		assert.Equal(t, "ABCDE1234F", res.Document.Number)
		assert.Equal(t, "Priya Sharma", res.Document.Name)
	})

	t.Run("aadhar with dob", func(t *testing.T) {
		res := ParseDocumentText("GOVT\nDOB: 10/05/1992\n1234 5678 9012")
		require.True(t, res.OK())
		assert.Equal(t, model.DocAadhar, res.Document.Type)
		assert.Equal(t, "1234 5678 9012", res.Document.Number)
		assert.Equal(t, "10/05/1992", res.Document.DateOfBirth)
	})

	t.Run("ocr misread birth label", func(t *testing.T) {
		res := ParseDocumentText("Year of Binh : 01/01/1990\n1111 2222 3333")
		require.True(t, res.OK())
		assert.Equal(t, "01/01/1990", res.Document.DateOfBirth)
		assert.Equal(t, "1111 2222 3333", res.Document.Number)
	})

	t.Run("number on the line after the birth year", func(t *testing.T) {
		res := ParseDocumentText("GOVERNMENT OF INDIA\nName: Priya Sharma\nDOB: 10/05/1992\n1234 5678 9012\n")
		require.True(t, res.OK())
		assert.Equal(t, model.DocAadhar, res.Document.Type)
		assert.Equal(t, "1234 5678 9012", res.Document.Number)
		assert.Equal(t, "10/05/1992", res.Document.DateOfBirth)
	})

	t.Run("groups split across lines are not a number", func(t *testing.T) {
		res := ParseDocumentText("1234\n5678\n9012")
		assert.False(t, res.OK())
	})

	t.Run("both patterns prefers aadhar", func(t *testing.T) {
		res := ParseDocumentText("ABCDE1234F\n1234 5678 9012")
		require.True(t, res.OK())
		assert.Equal(t, model.DocAadhar, res.Document.Type)
		assert.Equal(t, "1234 5678 9012", res.Document.Number)
	})

	t.Run("unknown", func(t *testing.T) {
		res := ParseDocumentText("hello world")
		assert.False(t, res.OK())
		assert.Equal(t, "Could not confidently determine document type.", res.Problem())
	})

	t.Run("empty", func(t *testing.T) {
		res := ParseDocumentText("")
		assert.False(t, res.OK())
		assert.NotEmpty(t, res.Problem())
	})
}

func TestDocumentVerifier(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		v := NewDocumentVerifier(FilenameExtractor{})
		res := v.Verify(ctx, filepath.Join(t.TempDir(), "nope.png"))
		assert.Equal(t, "File not found at nope.png", res.Error)
		assert.False(t, res.OK())
	})

	t.Run("extractor error", func(t *testing.T) {
		v := NewDocumentVerifier(stubExtractor{err: errors.New("bad image")})
		res := v.Verify(ctx, touch(t, "x.png"))
		assert.Equal(t, "An error occurred during OCR processing: bad image", res.Error)
	})

	t.Run("extractor panic", func(t *testing.T) {
		v := NewDocumentVerifier(stubExtractor{panic: true})
		res := v.Verify(ctx, touch(t, "x.png"))
		assert.Contains(t, res.Error, "OCR processing")
	})

	t.Run("filename fixture", func(t *testing.T) {
		v := NewDocumentVerifier(FilenameExtractor{})

		res := v.Verify(ctx, touch(t, "my_aadhar.png"))
		require.True(t, res.OK())
		assert.Equal(t, model.DocAadhar, res.Document.Type)
		assert.Equal(t, "Priya Sharma", res.Document.Name)

		res = v.Verify(ctx, touch(t, "PAN_card.jpg"))
		require.True(t, res.OK())
		assert.Equal(t, model.DocPAN, res.Document.Type)

		res = v.Verify(ctx, touch(t, "selfie.png"))
		assert.False(t, res.OK())
	})
}

func TestCheckNameConsistency(t *testing.T) {
	existing := map[model.DocType]string{model.DocPAN: "Priya  Sharma"}

	assert.Empty(t, CheckNameConsistency(existing, model.Document{Type: model.DocAadhar, Name: "priya sharma"}))
	assert.Equal(t, "Name mismatch in documents.",
		CheckNameConsistency(existing, model.Document{Type: model.DocAadhar, Name: "Rahul Verma"}))
	// re-uploading the same card type replaces the name, it is not a mismatch
	assert.Empty(t, CheckNameConsistency(existing, model.Document{Type: model.DocPAN, Name: "Rahul Verma"}))
	assert.Empty(t, CheckNameConsistency(nil, model.Document{Type: model.DocPAN, Name: "Rahul Verma"}))
	assert.Empty(t, CheckNameConsistency(existing, model.Document{Type: model.DocAadhar}))
}

func TestNewGeminiExtractorRequiresClient(t *testing.T) {
	_, err := NewGeminiExtractor(nil, "")
	require.Error(t, err)
}

func TestClipTextKeepsRunesWhole(t *testing.T) {
	text := "Name: प्रिया"
	for n := 0; n <= len(text); n++ {
		clipped := clipText(text, n)
		assert.True(t, utf8.ValidString(clipped), "n=%d", n)
		assert.LessOrEqual(t, len(clipped), n)
		assert.True(t, strings.HasPrefix(text, clipped))
	}
	assert.Equal(t, text, clipText(text, len(text)+10))
}

func TestVerifierAadharBelowBirthLine(t *testing.T) {
	v := NewDocumentVerifier(stubExtractor{text: "GOVERNMENT OF INDIA\nName: Priya Sharma\nDOB: 10/05/1992\n1234 5678 9012\n"})
	res := v.Verify(context.Background(), touch(t, "card.png"))
	require.True(t, res.OK())
	assert.Equal(t, "1234 5678 9012", res.Document.Number)
}
