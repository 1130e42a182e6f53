package fix

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantavya0807/Github-Doctor/internal/models"
)

func TestRuleGeneratorSecretFixPython(t *testing.T) {
	issues := []models.Issue{{
		Type:     models.IssueSecretExposure,
		Line:     3,
		Severity: models.SeverityCritical,
		Match:    `api_key = "sk_live_1234567890abcdef"`,
	}}

	fixes, err := NewRuleGenerator().Generate(context.Background(), issues, "", "app.py")
	require.NoError(t, err)
	require.Len(t, fixes, 1)

	f := fixes[0]
	assert.Equal(t, 3, f.Line)
	assert.Equal(t, `api_key = os.environ["API_KEY"]`, f.FixedCode)
	assert.Equal(t, []string{"API_KEY"}, f.EnvVarsNeeded)
	assert.Equal(t, models.ConfidenceHigh, f.Confidence)
	assert.Equal(t, models.FixRuleBased, f.Type)
	assert.Equal(t, models.FixProposed, f.State)
}

func TestRuleGeneratorSecretFixJavaScript(t *testing.T) {
	issues := []models.Issue{{
		Type:  models.IssueSecretExposure,
		Line:  1,
		Match: `password: "hunter2secret"`,
	}}

	fixes, err := NewRuleGenerator().Generate(context.Background(), issues, "", "config.js")
	require.NoError(t, err)
	require.Len(t, fixes, 1)
	assert.Equal(t, "const password = process.env.PASSWORD", fixes[0].FixedCode)
	assert.Equal(t, []string{"PASSWORD"}, fixes[0].EnvVarsNeeded)
}

func TestRuleGeneratorDebugFixes(t *testing.T) {
	tests := []struct {
		name  string
		match string
		want  string
	}{
		{"python print", `print("debug")`, `# print("debug")`},
		{"js console log", `console.log("debug")`, `// console.log("debug")`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := []models.Issue{{Type: models.IssueDebugStatement, Line: 1, Match: tt.match}}
			fixes, err := NewRuleGenerator().Generate(context.Background(), issues, "", "x.py")
			require.NoError(t, err)
			require.Len(t, fixes, 1)
			assert.Equal(t, tt.want, fixes[0].FixedCode)
			assert.Equal(t, models.ConfidenceHigh, fixes[0].Confidence)
		})
	}
}

func TestRuleGeneratorBareExcept(t *testing.T) {
	issues := []models.Issue{{Type: models.IssueCodeQuality, Line: 2, Match: "except:"}}
	fixes, err := NewRuleGenerator().Generate(context.Background(), issues, "", "x.py")
	require.NoError(t, err)
	require.Len(t, fixes, 1)
	assert.Equal(t, "except Exception as e:", fixes[0].FixedCode)
}

func TestRuleGeneratorDeclinesUnknownIssues(t *testing.T) {
	issues := []models.Issue{
		{Type: models.IssuePerformance, Line: 1, Match: "for i in range(len(x)):"},
		{Type: models.IssueOther, Line: 2},
	}
	fixes, err := NewRuleGenerator().Generate(context.Background(), issues, "", "x.py")
	require.NoError(t, err)
	assert.Empty(t, fixes)
}
