package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// FixProposal is the raw fix payload a provider returns before validation.
type FixProposal struct {
	FixedCode     string   `json:"fixed_code"`
	Explanation   string   `json:"explanation"`
	EnvVarsNeeded []string `json:"env_vars_needed"`
	Confidence    string   `json:"confidence"`
}

var (
	jsonObjectRe  = regexp.MustCompile(`(?s)\{.*\}`)
	fencedBlockRe = regexp.MustCompile("(?s)```(?:[a-zA-Z0-9]+)?\n(.*?)\n```")
)

// ParseFixProposal extracts a fix proposal from a model response. Models
// sometimes wrap the JSON in prose or a fenced block, so parsing tries the
// embedded JSON object first and falls back to the first code fence.
func ParseFixProposal(text string) (FixProposal, error) {
	if raw := jsonObjectRe.FindString(text); raw != "" {
		var proposal FixProposal
		if err := json.Unmarshal([]byte(raw), &proposal); err == nil && proposal.FixedCode != "" {
			return proposal, nil
		}
	}

	if m := fencedBlockRe.FindStringSubmatch(text); m != nil {
		code := strings.TrimSpace(m[1])
		if code != "" {
			return FixProposal{
				FixedCode:   code,
				Explanation: "AI-suggested fix",
				Confidence:  "MEDIUM",
			}, nil
		}
	}

	return FixProposal{}, fmt.Errorf("no usable fix in provider response")
}
