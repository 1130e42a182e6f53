package fix

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/mantavya0807/Github-Doctor/internal/errors"
	"github.com/mantavya0807/Github-Doctor/internal/llm"
	"github.com/mantavya0807/Github-Doctor/internal/models"
)

// contextLines is how much surrounding source goes into the prompt.
const contextLines = 5

// Completer is the slice of the llm client the AI generator needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Enabled() bool
}

// AIGenerator asks an external language model for fix proposals and wraps
// validated responses into the Fix shape. AI fixes are capped at MEDIUM
// confidence; HIGH is reserved for deterministic rules.
type AIGenerator struct {
	provider Completer
	logger   *slog.Logger
}

// NewAIGenerator creates an AI-backed fix generator.
func NewAIGenerator(provider Completer) *AIGenerator {
	return &AIGenerator{
		provider: provider,
		logger:   slog.Default().With("component", "ai-fix"),
	}
}

const systemPrompt = `You are a code security and quality expert. You fix one code issue at a time.
Respond with a JSON object of this exact shape:
{"fixed_code": "corrected code for the flagged line only", "explanation": "what was fixed", "env_vars_needed": ["NAMES"], "confidence": "HIGH|MEDIUM|LOW"}
Maintain the same functionality and make the minimal change needed.`

// Generate produces one proposal per issue. Individual invalid proposals
// are dropped; a provider transport failure stops the batch and reports
// ProviderUnavailable alongside whatever was already produced.
func (g *AIGenerator) Generate(ctx context.Context, issues []models.Issue, source, filename string) ([]models.Fix, error) {
	if !g.provider.Enabled() {
		return nil, errors.New(errors.KindProviderUnavailable, "ai provider not configured")
	}

	lines := sourceLines(source)
	var fixes []models.Fix
	for _, issue := range issues {
		response, err := g.provider.CompleteJSON(ctx, systemPrompt, buildPrompt(issue, lines, filename))
		if err != nil {
			// Provider is down or throttled; later calls will not fare better.
			return fixes, err
		}

		fix, err := g.wrapProposal(response, issue, len(lines))
		if err != nil {
			g.logger.Debug("dropping unusable ai proposal", "line", issue.Line, "error", err)
			continue
		}
		fixes = append(fixes, fix)
	}
	return fixes, nil
}

// wrapProposal validates a provider response and converts it into a Fix.
func (g *AIGenerator) wrapProposal(response string, issue models.Issue, lineCount int) (models.Fix, error) {
	proposal, err := llm.ParseFixProposal(response)
	if err != nil {
		return models.Fix{}, err
	}
	if strings.TrimSpace(proposal.FixedCode) == "" {
		return models.Fix{}, fmt.Errorf("empty fixed_code")
	}
	if issue.Line < 1 || issue.Line > lineCount {
		return models.Fix{}, fmt.Errorf("line %d out of source bounds (1..%d)", issue.Line, lineCount)
	}

	explanation := proposal.Explanation
	if explanation == "" {
		explanation = "AI-generated fix"
	}

	return models.Fix{
		Line:          issue.Line,
		OriginalCode:  issue.Match,
		FixedCode:     proposal.FixedCode,
		Explanation:   explanation,
		Confidence:    capConfidence(proposal.Confidence),
		Type:          models.FixAIGenerated,
		EnvVarsNeeded: proposal.EnvVarsNeeded,
		State:         models.FixProposed,
	}, nil
}

// capConfidence limits AI-sourced confidence to MEDIUM. A provider claiming
// HIGH has not been independently verified.
func capConfidence(claimed string) models.Confidence {
	if models.Confidence(claimed) == models.ConfidenceLow {
		return models.ConfidenceLow
	}
	return models.ConfidenceMedium
}

func buildPrompt(issue models.Issue, lines []string, filename string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Language: %s\n", languageFor(filename))
	fmt.Fprintf(&sb, "Issue type: %s\nSeverity: %s\nMessage: %s\nLine: %d\n", issue.Type, issue.Severity, issue.Message, issue.Line)
	fmt.Fprintf(&sb, "Problematic code: %s\n\n", issue.Match)
	sb.WriteString("Surrounding code:\n")
	sb.WriteString(extractContext(lines, issue.Line))
	return sb.String()
}

// extractContext returns the lines around the issue, clamped to bounds.
func extractContext(lines []string, line int) string {
	start := line - contextLines - 1
	if start < 0 {
		start = 0
	}
	end := line + contextLines
	if end > len(lines) {
		end = len(lines)
	}
	if start >= end {
		return ""
	}
	return strings.Join(lines[start:end], "\n")
}

var languageNames = map[string]string{
	"py":   "Python",
	"js":   "JavaScript",
	"ts":   "TypeScript",
	"jsx":  "React JSX",
	"tsx":  "React TSX",
	"go":   "Go",
	"java": "Java",
	"rb":   "Ruby",
	"php":  "PHP",
	"sql":  "SQL",
	"c":    "C",
	"cpp":  "C++",
	"cs":   "C#",
}

func languageFor(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if name, ok := languageNames[ext]; ok {
		return name
	}
	return strings.ToUpper(ext)
}
