package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFixProposalPlainJSON(t *testing.T) {
	proposal, err := ParseFixProposal(`{"fixed_code": "x = os.environ[\"X\"]", "explanation": "env var", "env_vars_needed": ["X"], "confidence": "HIGH"}`)
	require.NoError(t, err)
	assert.Equal(t, `x = os.environ["X"]`, proposal.FixedCode)
	assert.Equal(t, "env var", proposal.Explanation)
	assert.Equal(t, []string{"X"}, proposal.EnvVarsNeeded)
	assert.Equal(t, "HIGH", proposal.Confidence)
}

func TestParseFixProposalJSONWrappedInProse(t *testing.T) {
	text := "Here is the fix you asked for:\n" +
		`{"fixed_code": "y = 1", "explanation": "simplify", "confidence": "MEDIUM"}` +
		"\nLet me know if you need anything else."
	proposal, err := ParseFixProposal(text)
	require.NoError(t, err)
	assert.Equal(t, "y = 1", proposal.FixedCode)
}

func TestParseFixProposalFencedCodeFallback(t *testing.T) {
	text := "The corrected line is:\n```python\napi_key = os.environ[\"API_KEY\"]\n```\n"
	proposal, err := ParseFixProposal(text)
	require.NoError(t, err)
	assert.Equal(t, `api_key = os.environ["API_KEY"]`, proposal.FixedCode)
	assert.Equal(t, "AI-suggested fix", proposal.Explanation)
	assert.Equal(t, "MEDIUM", proposal.Confidence)
}

func TestParseFixProposalGarbage(t *testing.T) {
	_, err := ParseFixProposal("sorry, I cannot help with that")
	require.Error(t, err)
}
