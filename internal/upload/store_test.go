package upload

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmartLoan360X/server/internal/agent/model"
	errx "github.com/SmartLoan360X/server/internal/core/error"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func newStore(t *testing.T, max int64) (*Store, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "uploads")
	s, err := NewStore(model.UploadConfig{Dir: dir, MaxBytes: max})
	require.NoError(t, err)
	return s, dir
}

func TestSavePNG(t *testing.T) {
	s, dir := newStore(t, 1024)

	path, err := s.Save("My Aadhar.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, "_My_Aadhar.png"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
}

func TestSaveJPEGGetsJPGExtension(t *testing.T) {
	s, _ := newStore(t, 0)
	path, err := s.Save("pan", bytes.NewReader([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10}))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_pan.jpg"), path)
}

func TestSaveRejects(t *testing.T) {
	s, dir := newStore(t, 8)

	_, err := s.Save("notes.txt", strings.NewReader("hello there"))
	assert.True(t, errx.IsKind(err, errx.KindValidation))

	_, err = s.Save("empty.png", bytes.NewReader(nil))
	assert.True(t, errx.IsKind(err, errx.KindValidation))

	_, err = s.Save("big.png", bytes.NewReader(pngHeader))
	assert.True(t, errx.IsKind(err, errx.KindValidation))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected uploads must not leave files behind")
}

func TestSafeStem(t *testing.T) {
	assert.Equal(t, "document", safeStem(""))
	assert.Equal(t, "pan_card", safeStem("../../pan card.png"))
	assert.Equal(t, "aadhar", safeStem("aadhar.jpeg"))
}

func TestRemove(t *testing.T) {
	s, _ := newStore(t, 1024)
	path, err := s.Save("pan.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)

	require.NoError(t, s.Remove(path))
	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
	require.NoError(t, s.Remove(path))

	outside := filepath.Join(t.TempDir(), "keep.png")
	require.NoError(t, os.WriteFile(outside, pngHeader, 0o600))
	require.Error(t, s.Remove(outside))
	_, err = os.Stat(outside)
	assert.NoError(t, err)
}
