// Package fix turns detected issues into candidate fixes. Two generators
// exist: a deterministic rule-based rewriter and an AI-backed one. They are
// alternatives distinguished by provenance, not duplicates, unless they
// produce the identical rewrite.
package fix

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mantavya0807/Github-Doctor/internal/errors"
	"github.com/mantavya0807/Github-Doctor/internal/models"
)

// Generator produces fix candidates for a batch of issues found in source.
type Generator interface {
	Generate(ctx context.Context, issues []models.Issue, source, filename string) ([]models.Fix, error)
}

// Engine combines the rule-based and AI generators. Rule-based fixes are
// always produced; AI failure degrades the batch with a ProviderUnavailable
// error instead of failing it.
type Engine struct {
	rules  *RuleGenerator
	ai     *AIGenerator
	logger *slog.Logger
}

// NewEngine creates an engine. The AI generator may be nil, in which case
// only rule-based fixes are produced.
func NewEngine(ai *AIGenerator) *Engine {
	return &Engine{
		rules:  NewRuleGenerator(),
		ai:     ai,
		logger: slog.Default().With("component", "fix"),
	}
}

// Generate returns the deduplicated fix candidates for issues. A non-nil
// error is always of kind ProviderUnavailable and reports degraded AI
// generation; the returned rule-based fixes are still valid.
func (e *Engine) Generate(ctx context.Context, issues []models.Issue, source, filename string) ([]models.Fix, error) {
	if len(issues) == 0 {
		return nil, nil
	}

	fixes, err := e.rules.Generate(ctx, issues, source, filename)
	if err != nil {
		// The rule generator never fails; keep the contract honest anyway.
		return nil, err
	}

	var providerErr error
	if e.ai != nil {
		aiFixes, aiErr := e.ai.Generate(ctx, issues, source, filename)
		fixes = append(fixes, aiFixes...)
		if aiErr != nil {
			providerErr = errors.Wrap(aiErr, errors.KindProviderUnavailable, "ai fix generation degraded")
			e.logger.Warn("ai fix generation degraded", "error", aiErr)
		}
	}

	return Dedupe(fixes), providerErr
}

// Dedupe drops fixes whose (line, fixed_code) already appeared. Order is
// preserved, so rule-based fixes (generated first) win ties with identical
// AI rewrites and remain the canonical copy.
func Dedupe(fixes []models.Fix) []models.Fix {
	type key struct {
		line int
		code string
	}
	seen := make(map[key]bool, len(fixes))
	out := fixes[:0:0]
	for _, f := range fixes {
		k := key{line: f.Line, code: strings.TrimSpace(f.FixedCode)}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, f)
	}
	return out
}

// sourceLines splits source once for bounds checks and context extraction.
func sourceLines(source string) []string {
	return strings.Split(source, "\n")
}
