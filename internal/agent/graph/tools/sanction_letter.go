package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LetterRequest is the payload the sanction letter needs.
type LetterRequest struct {
	CustomerName string
	LoanAmount   int64
	InterestRate float64
}

// Letter is a rendered sanction letter.
type Letter struct {
	Reference string
	Text      string
	// Path is set when the letter was also written to disk.
	Path string
}

// LetterRenderer produces the sanction letter artifact.
type LetterRenderer interface {
	Render(ctx context.Context, req LetterRequest) (*Letter, error)
}

// MarkdownLetterRenderer renders a markdown letter and optionally stores it under Dir.
type MarkdownLetterRenderer struct {
	Lender string
	Dir    string
	Now    func() time.Time
	NewID  func() string
}

func NewMarkdownLetterRenderer(lender, dir string) *MarkdownLetterRenderer {
	return &MarkdownLetterRenderer{Lender: lender, Dir: dir, Now: time.Now, NewID: uuid.NewString}
}

func (r *MarkdownLetterRenderer) Render(_ context.Context, req LetterRequest) (*Letter, error) {
	if req.LoanAmount <= 0 {
		return nil, errors.New("sanction letter requires an approved amount")
	}
	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		name = "Customer"
	}
	lender := r.Lender
	if lender == "" {
		lender = "SmartLoan360X"
	}

	ref := r.NewID()
	var b strings.Builder
	b.WriteString("**Loan Sanction Letter**\n\n")
	fmt.Fprintf(&b, "Reference: %s\n\n", ref)
	fmt.Fprintf(&b, "Date: %s\n\n", r.Now().Format("02-Jan-2006"))
	fmt.Fprintf(&b, "Dear %s,\n\n", name)
	b.WriteString("We are pleased to inform you that your loan has been approved!\n\n")
	fmt.Fprintf(&b, "- **Approved Amount**: %s INR\n", FormatINR(req.LoanAmount))
	fmt.Fprintf(&b, "- **Interest Rate**: %.1f%%\n\n", req.InterestRate)
	fmt.Fprintf(&b, "Thank you for choosing %s.\n", lender)

	letter := &Letter{Reference: ref, Text: b.String()}
	if r.Dir != "" {
		path, err := r.write(ref, letter.Text)
		if err != nil {
			return nil, err
		}
		letter.Path = path
	}
	return letter, nil
}

func (r *MarkdownLetterRenderer) write(ref, text string) (path string, err error) {
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create letter dir: %w", err)
	}
	path = filepath.Join(r.Dir, ref+".md")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create letter file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close letter file: %w", cerr)
		}
	}()
	if _, err := f.WriteString(text); err != nil {
		return "", fmt.Errorf("write letter file: %w", err)
	}
	return path, nil
}

// FormatINR groups digits the Indian way: 2500000 -> 25,00,000.
func FormatINR(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	if len(s) > 3 {
		head, tail := s[:len(s)-3], s[len(s)-3:]
		var groups []string
		for len(head) > 2 {
			groups = append([]string{head[len(head)-2:]}, groups...)
			head = head[:len(head)-2]
		}
		if head != "" {
			groups = append([]string{head}, groups...)
		}
		s = strings.Join(groups, ",") + "," + tail
	}
	if neg {
		return "-" + s
	}
	return s
}

var _ LetterRenderer = (*MarkdownLetterRenderer)(nil)
