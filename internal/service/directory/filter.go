package directory

import (
	"strings"

	model "github.com/zhouzirui/user-directory/backend/internal/model/directory"
)

// Filter returns the records whose name, username or email contains term,
// compared case-insensitively. The result is a fresh slice in the original
// order; an empty term matches every record.
func Filter(records []model.UserRecord, term string) []model.UserRecord {
	folded := strings.ToLower(term)
	out := make([]model.UserRecord, 0, len(records))
	for _, record := range records {
		if Matches(record, folded) {
			out = append(out, record)
		}
	}
	return out
}

// Matches reports whether record matches an already case-folded term.
func Matches(record model.UserRecord, foldedTerm string) bool {
	return strings.Contains(strings.ToLower(record.Name), foldedTerm) ||
		strings.Contains(strings.ToLower(record.Email), foldedTerm) ||
		strings.Contains(strings.ToLower(record.Username), foldedTerm)
}
