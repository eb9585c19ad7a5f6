// Package upload persists identity document images for the KYC step.
package upload

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/SmartLoan360X/server/internal/agent/model"
	errx "github.com/SmartLoan360X/server/internal/core/error"
)

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
}

// Store writes uploads under Dir with generated names.
type Store struct {
	dir      string
	maxBytes int64
}

func NewStore(cfg model.UploadConfig) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("upload dir is empty")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: cfg.Dir, maxBytes: cfg.MaxBytes}, nil
}

// Save stores one PNG or JPEG image and returns its path. The original file
// name is kept as a suffix so the fixture extractor can still recognise it.
func (s *Store) Save(originalName string, r io.Reader) (_ string, err error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(head) == 0 {
		return "", errx.Validation("uploaded file is empty")
	}
	ext, ok := extensions[http.DetectContentType(head)]
	if !ok {
		return "", errx.Validation("only PNG or JPEG images are accepted")
	}

	path := filepath.Join(s.dir, uuid.NewString()+"_"+safeStem(originalName)+ext)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close upload file: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	src := io.Reader(br)
	if s.maxBytes > 0 {
		src = io.LimitReader(br, s.maxBytes+1)
	}
	n, err := io.Copy(f, src)
	if err != nil {
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		return "", errx.Validationf("file exceeds %d bytes", s.maxBytes)
	}
	return path, nil
}

// Remove deletes a file previously returned by Save. Paths outside the store
// directory are rejected.
func (s *Store) Remove(path string) error {
	if filepath.Dir(filepath.Clean(path)) != filepath.Clean(s.dir) {
		return fmt.Errorf("path %s is not in the upload dir", filepath.Base(path))
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove upload file: %w", err)
	}
	return nil
}

func safeStem(name string) string {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	stem = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, stem)
	if stem == "" || stem == "." || stem == "_" {
		return "document"
	}
	if len(stem) > 64 {
		stem = stem[:64]
	}
	return stem
}
