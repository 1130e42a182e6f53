package detect

import (
	"github.com/mantavya0807/Github-Doctor/internal/models"
)

// Severity weights for the security score. Strictly increasing with risk.
var severityWeights = map[models.Severity]int{
	models.SeverityLow:      3,
	models.SeverityMedium:   8,
	models.SeverityHigh:     15,
	models.SeverityCritical: 25,
}

// Score computes the 0-100 security score for a batch of issues.
// Each issue subtracts its severity weight from 100; the result is clamped
// so adding issues can never raise the score.
func Score(issues []models.Issue) int {
	score := 100
	for _, issue := range issues {
		w, ok := severityWeights[issue.Severity]
		if !ok {
			w = severityWeights[models.SeverityLow]
		}
		score -= w
	}
	if score < 0 {
		return 0
	}
	return score
}

// RiskLevelFor buckets a security score. Total and monotonic: every score
// maps to exactly one bucket, and a lower score never yields a lower risk.
func RiskLevelFor(score int) models.RiskLevel {
	switch {
	case score >= 95:
		return models.RiskLow
	case score >= 80:
		return models.RiskMedium
	case score >= 60:
		return models.RiskHigh
	default:
		return models.RiskCritical
	}
}
