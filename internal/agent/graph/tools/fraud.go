package tools

import (
	"strings"

	"github.com/SmartLoan360X/server/internal/agent/model"
)

const nameMismatchReason = "Name mismatch in documents."

// CheckNameConsistency compares a newly verified document against names
// already verified on other document types. It returns a non-empty reason
// when the holder names disagree.
func CheckNameConsistency(existing map[model.DocType]string, doc model.Document) string {
	if doc.Name == "" {
		return ""
	}
	for docType, name := range existing {
		if docType == doc.Type || name == "" {
			continue
		}
		if normalizeName(name) != normalizeName(doc.Name) {
			return nameMismatchReason
		}
	}
	return ""
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
