package detect

import (
	"regexp"

	"github.com/mantavya0807/Github-Doctor/internal/models"
)

// pattern is one compiled detection rule.
type pattern struct {
	re       *regexp.Regexp
	severity models.Severity
	message  string
}

func p(expr string, sev models.Severity, msg string) pattern {
	return pattern{re: regexp.MustCompile(expr), severity: sev, message: msg}
}

// secretPatterns apply to every file regardless of language.
var secretPatterns = []pattern{
	// Credential assignments
	p(`(?i)api[_-]?key["']?\s*[:=]\s*["'][^"']{8,}["']`, models.SeverityCritical, "API Key Exposure"),
	p(`(?i)secret[_-]?key["']?\s*[:=]\s*["'][^"']{8,}["']`, models.SeverityCritical, "Secret Key Exposure"),
	p(`(?i)access[_-]?token["']?\s*[:=]\s*["'][^"']{10,}["']`, models.SeverityCritical, "Access Token Exposure"),
	p(`(?i)auth[_-]?token["']?\s*[:=]\s*["'][^"']{10,}["']`, models.SeverityCritical, "Auth Token Exposure"),
	p(`(?i)client[_-]?secret["']?\s*[:=]\s*["'][^"']{10,}["']`, models.SeverityCritical, "Client Secret Exposure"),
	p(`(?i)password["']?\s*[:=]\s*["'][^"']{6,}["']`, models.SeverityCritical, "Password Hardcoded"),
	p(`(?i)passwd["']?\s*[:=]\s*["'][^"']{6,}["']`, models.SeverityCritical, "Password Hardcoded"),
	p(`(?i)jwt[_-]?secret["']?\s*[:=]\s*["'][^"']{10,}["']`, models.SeverityCritical, "JWT Secret Key"),
	p(`(?i)signing[_-]?key["']?\s*[:=]\s*["'][^"']{10,}["']`, models.SeverityHigh, "Signing Key"),
	p(`(?i)encryption[_-]?key["']?\s*[:=]\s*["'][^"']{10,}["']`, models.SeverityCritical, "Encryption Key"),
	// Provider token formats
	p(`sk_[a-zA-Z0-9]{24,}`, models.SeverityCritical, "Stripe Secret Key"),
	p(`rk_[a-zA-Z0-9]{24,}`, models.SeverityCritical, "Stripe Restricted Key"),
	p(`AKIA[0-9A-Z]{16}`, models.SeverityCritical, "AWS Access Key ID"),
	p(`ghp_[A-Za-z0-9]{36}`, models.SeverityCritical, "GitHub Personal Access Token"),
	p(`github_pat_[A-Za-z0-9]{22,}`, models.SeverityCritical, "GitHub Fine-grained Token"),
	p(`gho_[A-Za-z0-9]{36}`, models.SeverityHigh, "GitHub OAuth Token"),
	p(`ya29\.[0-9A-Za-z\-_]+`, models.SeverityCritical, "Google OAuth Access Token"),
	p(`AIza[0-9A-Za-z\-_]{35}`, models.SeverityHigh, "Google API Key"),
	// Connection strings
	p(`mongodb://[^"\s]+`, models.SeverityHigh, "MongoDB Connection String"),
	p(`postgresql://[^"\s]+`, models.SeverityHigh, "PostgreSQL Connection String"),
	p(`mysql://[^"\s]+`, models.SeverityHigh, "MySQL Connection String"),
	p(`redis://[^"\s]+`, models.SeverityMedium, "Redis Connection String"),
	// Key material
	p(`-----BEGIN[^-]+PRIVATE KEY-----`, models.SeverityCritical, "Private Key"),
	p(`-----BEGIN CERTIFICATE-----`, models.SeverityMedium, "Certificate"),
}

// debugPatterns are keyed by file extension; the "general" set applies to all.
var debugPatterns = map[string][]pattern{
	"py": {
		p(`print\s*\([^)]*\)`, models.SeverityMedium, "Print Statement"),
		p(`pprint\s*\([^)]*\)`, models.SeverityMedium, "Pretty Print Statement"),
		p(`logging\.debug\s*\([^)]*\)`, models.SeverityLow, "Debug Logging"),
		p(`breakpoint\s*\(\)`, models.SeverityHigh, "Breakpoint"),
		p(`pdb\.set_trace\(\)`, models.SeverityHigh, "PDB Debugger"),
	},
	"js": {
		p(`console\.log\s*\([^)]*\)`, models.SeverityMedium, "Console Log"),
		p(`console\.debug\s*\([^)]*\)`, models.SeverityMedium, "Console Debug"),
		p(`console\.trace\s*\([^)]*\)`, models.SeverityMedium, "Console Trace"),
		p(`debugger\s*;?`, models.SeverityHigh, "Debugger Statement"),
		p(`alert\s*\([^)]*\)`, models.SeverityMedium, "Alert Statement"),
	},
	"ts": {
		p(`console\.log\s*\([^)]*\)`, models.SeverityMedium, "Console Log"),
		p(`console\.debug\s*\([^)]*\)`, models.SeverityMedium, "Console Debug"),
		p(`debugger\s*;?`, models.SeverityHigh, "Debugger Statement"),
	},
	"general": {
		p(`(?:#|//)\s*FIXME[:\s].*`, models.SeverityMedium, "FIXME Comment"),
		p(`(?:#|//)\s*HACK[:\s].*`, models.SeverityHigh, "HACK Comment"),
		p(`(?:#|//)\s*XXX[:\s].*`, models.SeverityMedium, "XXX Comment"),
	},
}

// qualityPatterns are language-specific code quality rules.
var qualityPatterns = map[string][]pattern{
	"py": {
		p(`except\s*:`, models.SeverityMedium, "Bare Except Clause"),
		p(`exec\s*\(`, models.SeverityHigh, "Exec Statement (Security Risk)"),
		p(`eval\s*\(`, models.SeverityHigh, "Eval Statement (Security Risk)"),
		p(`from\s+\S+\s+import\s+\*`, models.SeverityMedium, "Wildcard Import"),
		p(`global\s+\w+`, models.SeverityLow, "Global Variable Usage"),
	},
	"js": {
		p(`eval\s*\(`, models.SeverityHigh, "Eval Usage (Security Risk)"),
		p(`document\.write\s*\(`, models.SeverityMedium, "Document.write Usage"),
		p(`innerHTML\s*=`, models.SeverityMedium, "Direct innerHTML Assignment"),
		p(`\bvar\s+\w+`, models.SeverityLow, "Var Declaration (Use let/const)"),
	},
	"sql": {
		p(`(?i)SELECT\s+\*\s+FROM`, models.SeverityMedium, "SELECT * Usage"),
		p(`(?i)DROP\s+TABLE`, models.SeverityCritical, "DROP TABLE Statement"),
	},
}

// perfPatterns flag common performance pitfalls.
var perfPatterns = map[string][]pattern{
	"py": {
		p(`for\s+\w+\s+in\s+range\s*\(\s*len\s*\([^)]+\)\s*\)`, models.SeverityMedium, "Inefficient Range Loop"),
		p(`time\.sleep\s*\(\s*[0-9]+\s*\)`, models.SeverityLow, "Hard-coded Sleep"),
	},
	"js": {
		p(`setTimeout\s*\([^,]+,\s*0\s*\)`, models.SeverityLow, "setTimeout with 0ms"),
		p(`setInterval\s*\([^,]+,\s*[0-9]{1,2}\s*\)`, models.SeverityMedium, "Frequent Interval"),
	},
}

// aliases maps related extensions onto the canonical pattern key.
var extAliases = map[string]string{
	"jsx": "js",
	"tsx": "ts",
	"pyw": "py",
}

func canonicalExt(ext string) string {
	if alias, ok := extAliases[ext]; ok {
		return alias
	}
	return ext
}
