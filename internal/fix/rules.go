package fix

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mantavya0807/Github-Doctor/internal/models"
)

// RuleGenerator produces deterministic textual substitutions for the issue
// types it knows. Per issue it either succeeds completely or declines;
// confidence is always HIGH.
type RuleGenerator struct{}

// NewRuleGenerator creates a rule-based fix generator.
func NewRuleGenerator() *RuleGenerator {
	return &RuleGenerator{}
}

var secretVarRe = regexp.MustCompile(`(\w+)\s*[=:]\s*["']`)

// Generate maps each issue to a rewrite rule. Issues with no matching rule
// are skipped; the method itself never fails.
func (g *RuleGenerator) Generate(_ context.Context, issues []models.Issue, _ string, filename string) ([]models.Fix, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")

	var fixes []models.Fix
	for _, issue := range issues {
		if f, ok := ruleFor(issue, ext); ok {
			fixes = append(fixes, f)
		}
	}
	return fixes, nil
}

func ruleFor(issue models.Issue, ext string) (models.Fix, bool) {
	switch issue.Type {
	case models.IssueSecretExposure:
		return secretFix(issue, ext)
	case models.IssueDebugStatement:
		return debugFix(issue)
	case models.IssueCodeQuality:
		return qualityFix(issue)
	}
	return models.Fix{}, false
}

// secretFix replaces a hard-coded credential with an environment lookup and
// records the symbolic name the fix externalizes.
func secretFix(issue models.Issue, ext string) (models.Fix, bool) {
	varName := "SECRET_KEY"
	ident := "secret"
	if m := secretVarRe.FindStringSubmatch(issue.Match); m != nil {
		ident = m[1]
		varName = strings.ToUpper(m[1])
	}

	var fixed string
	switch ext {
	case "py":
		fixed = fmt.Sprintf(`%s = os.environ["%s"]`, ident, varName)
	case "js", "ts", "jsx", "tsx":
		fixed = fmt.Sprintf("const %s = process.env.%s", ident, varName)
	default:
		fixed = fmt.Sprintf("// replace with environment variable %s", varName)
	}

	return models.Fix{
		Line:          issue.Line,
		OriginalCode:  issue.Match,
		FixedCode:     fixed,
		Explanation:   fmt.Sprintf("Replace hardcoded secret with environment variable %s", varName),
		Confidence:    models.ConfidenceHigh,
		Type:          models.FixRuleBased,
		EnvVarsNeeded: []string{varName},
		State:         models.FixProposed,
	}, true
}

// debugFix comments out the debug statement rather than deleting it, so the
// author decides whether it was load-bearing.
func debugFix(issue models.Issue) (models.Fix, bool) {
	switch {
	case strings.Contains(issue.Match, "print("):
		return models.Fix{
			Line:         issue.Line,
			OriginalCode: issue.Match,
			FixedCode:    "# " + issue.Match,
			Explanation:  "Comment out debug print statement",
			Confidence:   models.ConfidenceHigh,
			Type:         models.FixRuleBased,
			State:        models.FixProposed,
		}, true
	case strings.Contains(issue.Match, "console.log("):
		return models.Fix{
			Line:         issue.Line,
			OriginalCode: issue.Match,
			FixedCode:    "// " + issue.Match,
			Explanation:  "Comment out debug console.log statement",
			Confidence:   models.ConfidenceHigh,
			Type:         models.FixRuleBased,
			State:        models.FixProposed,
		}, true
	}
	return models.Fix{}, false
}

func qualityFix(issue models.Issue) (models.Fix, bool) {
	if strings.Contains(issue.Match, "except:") {
		return models.Fix{
			Line:         issue.Line,
			OriginalCode: issue.Match,
			FixedCode:    strings.Replace(issue.Match, "except:", "except Exception as e:", 1),
			Explanation:  "Replace bare except with specific exception handling",
			Confidence:   models.ConfidenceHigh,
			Type:         models.FixRuleBased,
			State:        models.FixProposed,
		}, true
	}
	return models.Fix{}, false
}
