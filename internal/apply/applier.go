// Package apply takes selected fixes through the applying state and rewrites
// file content. Fixes move proposed -> selected -> applying -> applied|failed;
// a failed fix never leaves partial edits behind on its line.
package apply

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/mantavya0807/Github-Doctor/internal/errors"
	"github.com/mantavya0807/Github-Doctor/internal/models"
)

// Failure pairs a fix that could not be applied with the reason.
type Failure struct {
	Fix models.Fix `json:"fix"`
	Err error      `json:"-"`
	// Reason is the string form of Err, kept separately so the failure
	// survives JSON round-trips.
	Reason string `json:"reason"`
}

// Result reports a (possibly partial) application run over one file.
type Result struct {
	Content string       `json:"content"`
	Applied []models.Fix `json:"applied"`
	Failed  []Failure    `json:"failed"`
}

// Applier rewrites file content according to selected fixes.
type Applier struct {
	logger *slog.Logger
}

func NewApplier() *Applier {
	return &Applier{logger: slog.Default().With("component", "apply")}
}

// Select resolves the requested fix keys against the proposed batch and
// returns the matching fixes in selected state. A key that matches no
// proposed fix means the batch has moved on underneath the caller, which is
// a staleness failure for the whole selection.
func Select(proposed []models.Fix, keys []models.FixKey) ([]models.Fix, error) {
	byKey := make(map[models.FixKey]models.Fix, len(proposed))
	for _, f := range proposed {
		if _, ok := byKey[f.Key()]; !ok {
			byKey[f.Key()] = f
		}
	}

	selected := make([]models.Fix, 0, len(keys))
	for _, k := range keys {
		f, ok := byKey[k]
		if !ok {
			return nil, errors.Newf(errors.KindStaleFix, "no proposed fix at line %d with explanation %q", k.Line, k.Explanation)
		}
		f.State = models.FixSelected
		selected = append(selected, f)
	}
	return selected, nil
}

// Apply rewrites content with the selected fixes and reports per-fix
// outcomes. Fixes are processed in ascending (line, explanation) order so
// the run is deterministic regardless of input order. A stale or conflicting
// fix fails without touching the file; the remaining fixes still apply.
func (a *Applier) Apply(content string, selected []models.Fix) Result {
	ordered := make([]models.Fix, len(selected))
	copy(ordered, selected)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Line != ordered[j].Line {
			return ordered[i].Line < ordered[j].Line
		}
		return ordered[i].Explanation < ordered[j].Explanation
	})

	lines := strings.Split(content, "\n")
	claimed := make(map[int]bool, len(ordered))

	var result Result
	for _, fix := range ordered {
		fix.State = models.FixApplying

		if claimed[fix.Line] {
			a.fail(&result, fix, errors.Newf(errors.KindConflict, "line %d already rewritten by an earlier fix", fix.Line))
			continue
		}
		if fix.Line < 1 || fix.Line > len(lines) {
			a.fail(&result, fix, errors.Newf(errors.KindStaleFix, "line %d is beyond current file length %d", fix.Line, len(lines)))
			continue
		}

		current := lines[fix.Line-1]
		switch {
		case strings.TrimSpace(current) == strings.TrimSpace(fix.FixedCode):
			// Already applied in an earlier run. Re-applying is a no-op
			// success, not an error.
		case fix.OriginalCode != "" && !strings.Contains(current, fix.OriginalCode):
			a.fail(&result, fix, errors.Newf(errors.KindStaleFix, "line %d no longer contains the analyzed code", fix.Line))
			continue
		default:
			lines[fix.Line-1] = leadingWhitespace(current) + strings.TrimLeft(fix.FixedCode, " \t")
		}

		claimed[fix.Line] = true
		fix.State = models.FixApplied
		fix.Applied = true
		result.Applied = append(result.Applied, fix)
	}

	result.Content = strings.Join(lines, "\n")
	return result
}

func (a *Applier) fail(result *Result, fix models.Fix, err error) {
	fix.State = models.FixFailed
	a.logger.Warn("fix not applied", "line", fix.Line, "error", err)
	result.Failed = append(result.Failed, Failure{Fix: fix, Err: err, Reason: err.Error()})
}

// leadingWhitespace returns the indentation prefix of line, preserved when
// a fix's replacement text carries none of its own.
func leadingWhitespace(line string) string {
	trimmed := strings.TrimLeft(line, " \t")
	return line[:len(line)-len(trimmed)]
}

// EnvVars collects the distinct environment variable names the applied
// fixes externalized, in first-seen order.
func EnvVars(applied []models.Fix) []string {
	seen := make(map[string]bool)
	var names []string
	for _, f := range applied {
		for _, v := range f.EnvVarsNeeded {
			if !seen[v] {
				seen[v] = true
				names = append(names, v)
			}
		}
	}
	return names
}
