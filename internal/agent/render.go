package agent

import (
	"fmt"
	"strings"

	"github.com/mantavya0807/Github-Doctor/internal/apply"
	"github.com/mantavya0807/Github-Doctor/internal/models"
)

// envExampleContent renders the .env.example committed alongside fixes that
// externalized secrets.
func envExampleContent(vars []string) string {
	var sb strings.Builder
	sb.WriteString("# Environment variables required by applied security fixes.\n")
	sb.WriteString("# Fill in real values and keep this file out of version control once populated.\n\n")
	for _, v := range vars {
		fmt.Fprintf(&sb, "%s=your_%s_here\n", v, strings.ToLower(v))
	}
	return sb.String()
}

// requestTitle builds the pull request title for a fix batch.
func requestTitle(applied int) string {
	if applied == 1 {
		return "Fix 1 issue detected by github-doctor"
	}
	return fmt.Sprintf("Fix %d issues detected by github-doctor", applied)
}

// suggestionTitle builds the review request title suggest mode opens.
func suggestionTitle(count int) string {
	if count == 1 {
		return "Suggest 1 fix for review"
	}
	return fmt.Sprintf("Suggest %d fixes for review", count)
}

// requestBody renders the pull request description: per-file outcomes,
// required environment variables, and the score after analysis.
func requestBody(result *models.AnalysisResult, outcomes map[string]apply.Result, envVars []string) string {
	var sb strings.Builder
	sb.WriteString("## Automated fixes\n\n")
	fmt.Fprintf(&sb, "Security score: **%d/100** (%s risk)\n\n", result.SecurityScore, result.RiskLevel)

	for _, file := range result.Files {
		outcome, ok := outcomes[file.Filename]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "### `%s`\n\n", file.Filename)
		for _, f := range outcome.Applied {
			fmt.Fprintf(&sb, "- [x] line %d: %s\n", f.Line, f.Explanation)
		}
		for _, f := range outcome.Failed {
			fmt.Fprintf(&sb, "- [ ] line %d: %s (not applied: %s)\n", f.Fix.Line, f.Fix.Explanation, f.Reason)
		}
		sb.WriteString("\n")
	}

	if len(envVars) > 0 {
		sb.WriteString("## Required environment variables\n\n")
		sb.WriteString("Set these before deploying; a `.env.example` is included.\n\n")
		for _, v := range envVars {
			fmt.Fprintf(&sb, "- `%s`\n", v)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("---\n*Opened automatically by github-doctor. Review before merging.*\n")
	return sb.String()
}
