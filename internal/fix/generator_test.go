package fix

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantavya0807/Github-Doctor/internal/errors"
	"github.com/mantavya0807/Github-Doctor/internal/models"
)

// fakeCompleter is a canned ai provider for tests.
type fakeCompleter struct {
	enabled   bool
	responses []string
	err       error
	calls     int
}

func (f *fakeCompleter) CompleteJSON(_ context.Context, _, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", fmt.Errorf("no response configured")
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

func (f *fakeCompleter) Enabled() bool { return f.enabled }

func secretIssue(line int) models.Issue {
	return models.Issue{
		Type:     models.IssueSecretExposure,
		Line:     line,
		Severity: models.SeverityCritical,
		Match:    `api_key = "sk_live_1234567890abcdef"`,
	}
}

const pySource = "import os\n\napi_key = \"sk_live_1234567890abcdef\"\nprint(\"debug\")\n"

func TestAIGeneratorCapsConfidenceAtMedium(t *testing.T) {
	completer := &fakeCompleter{
		enabled:   true,
		responses: []string{`{"fixed_code": "api_key = load_key()", "explanation": "Load key from vault", "confidence": "HIGH"}`},
	}

	fixes, err := NewAIGenerator(completer).Generate(context.Background(), []models.Issue{secretIssue(3)}, pySource, "app.py")
	require.NoError(t, err)
	require.Len(t, fixes, 1)
	assert.Equal(t, models.ConfidenceMedium, fixes[0].Confidence)
	assert.Equal(t, models.FixAIGenerated, fixes[0].Type)
}

func TestAIGeneratorDropsInvalidProposals(t *testing.T) {
	completer := &fakeCompleter{
		enabled: true,
		responses: []string{
			`{"fixed_code": "", "explanation": "empty"}`,
			`{"fixed_code": "ok()", "explanation": "fine", "confidence": "MEDIUM"}`,
		},
	}
	issues := []models.Issue{secretIssue(999), secretIssue(3)}

	fixes, err := NewAIGenerator(completer).Generate(context.Background(), issues, pySource, "app.py")
	require.NoError(t, err)
	// The empty proposal for the out-of-bounds issue is dropped; only the
	// second survives.
	require.Len(t, fixes, 1)
	assert.Equal(t, 3, fixes[0].Line)
}

func TestAIGeneratorDisabledProvider(t *testing.T) {
	completer := &fakeCompleter{enabled: false}
	_, err := NewAIGenerator(completer).Generate(context.Background(), []models.Issue{secretIssue(3)}, pySource, "app.py")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindProviderUnavailable))
	assert.Zero(t, completer.calls)
}

func TestEngineDegradesWhenProviderFails(t *testing.T) {
	completer := &fakeCompleter{
		enabled: true,
		err:     errors.New(errors.KindProviderUnavailable, "provider down"),
	}
	engine := NewEngine(NewAIGenerator(completer))

	issues := []models.Issue{secretIssue(3)}
	fixes, err := engine.Generate(context.Background(), issues, pySource, "app.py")

	// Rule-based fixes survive the outage; the error reports the degradation.
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindProviderUnavailable))
	require.Len(t, fixes, 1)
	assert.Equal(t, models.FixRuleBased, fixes[0].Type)
}

func TestEngineWithoutAIProducesRuleFixesOnly(t *testing.T) {
	engine := NewEngine(nil)
	fixes, err := engine.Generate(context.Background(), []models.Issue{secretIssue(3)}, pySource, "app.py")
	require.NoError(t, err)
	require.Len(t, fixes, 1)
	assert.Equal(t, models.FixRuleBased, fixes[0].Type)
}

func TestEngineDedupePrefersRuleBased(t *testing.T) {
	// The ai proposes the identical rewrite the rule already produced.
	completer := &fakeCompleter{
		enabled:   true,
		responses: []string{`{"fixed_code": "api_key = os.environ[\"API_KEY\"]", "explanation": "Use env var", "confidence": "MEDIUM"}`},
	}
	engine := NewEngine(NewAIGenerator(completer))

	fixes, err := engine.Generate(context.Background(), []models.Issue{secretIssue(3)}, pySource, "app.py")
	require.NoError(t, err)
	require.Len(t, fixes, 1)
	assert.Equal(t, models.FixRuleBased, fixes[0].Type)
	assert.Equal(t, models.ConfidenceHigh, fixes[0].Confidence)
}

func TestDedupeKeepsDistinctRewritesOnSameLine(t *testing.T) {
	fixes := []models.Fix{
		{Line: 3, FixedCode: "a()", Explanation: "first"},
		{Line: 3, FixedCode: "b()", Explanation: "second"},
		{Line: 3, FixedCode: "a()", Explanation: "duplicate of first"},
		{Line: 4, FixedCode: "a()", Explanation: "same code, other line"},
	}
	out := Dedupe(fixes)
	require.Len(t, out, 3)
	assert.Equal(t, "first", out[0].Explanation)
	assert.Equal(t, "second", out[1].Explanation)
	assert.Equal(t, "same code, other line", out[2].Explanation)
}

func TestEngineEmptyIssues(t *testing.T) {
	fixes, err := NewEngine(nil).Generate(context.Background(), nil, "", "x.py")
	require.NoError(t, err)
	assert.Nil(t, fixes)
}
