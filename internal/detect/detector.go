// Package detect scans source text for security and code-quality issues.
// Detection is a pure function of the input: the same text always produces
// the same issue sequence, in ascending line order.
package detect

import (
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mantavya0807/Github-Doctor/internal/errors"
	"github.com/mantavya0807/Github-Doctor/internal/models"
)

const maxMatchLen = 100

// Detect scans text and returns issues in ascending (line, column) order.
// The filename is only used to pick language-specific pattern sets.
// Undecodable content fails with a DecodeError so the caller can report the
// file and continue with the rest of the batch.
func Detect(text, filename string) ([]models.Issue, error) {
	if !utf8.ValidString(text) || strings.ContainsRune(text, 0) {
		return nil, errors.Newf(errors.KindDecode, "content of %s is not valid text", filename)
	}

	ext := canonicalExt(strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."))
	lines := strings.Split(text, "\n")

	var issues []models.Issue
	scan := func(pats []pattern, typ models.IssueType, category string) {
		for _, pat := range pats {
			for i, line := range lines {
				for _, loc := range pat.re.FindAllStringIndex(line, -1) {
					issues = append(issues, models.Issue{
						Type:         typ,
						Category:     category,
						Line:         i + 1,
						Column:       loc[0],
						Severity:     pat.severity,
						Message:      pat.message,
						Match:        truncate(line[loc[0]:loc[1]]),
						FixAvailable: true,
					})
				}
			}
		}
	}

	scan(secretPatterns, models.IssueSecretExposure, "security")
	scan(debugPatterns[ext], models.IssueDebugStatement, "debug")
	scan(debugPatterns["general"], models.IssueDebugStatement, "debug")
	scan(qualityPatterns[ext], models.IssueCodeQuality, "quality")
	scan(perfPatterns[ext], models.IssuePerformance, "performance")

	sort.SliceStable(issues, func(a, b int) bool {
		if issues[a].Line != issues[b].Line {
			return issues[a].Line < issues[b].Line
		}
		if issues[a].Column != issues[b].Column {
			return issues[a].Column < issues[b].Column
		}
		return issues[a].Message < issues[b].Message
	})
	return issues, nil
}

func truncate(match string) string {
	if len(match) > maxMatchLen {
		return match[:maxMatchLen] + "..."
	}
	return match
}
