package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestEnvOverridesSecretPrecedence(t *testing.T) {
	keyring.MockInit()

	t.Run("gemini key falls back to keychain", func(t *testing.T) {
		require.NoError(t, NewKeyring().SaveGeminiKey("kc-gemini"))
		t.Setenv("GEMINI_API_KEY", "")

		cfg := Default()
		applyEnvOverrides(cfg)
		assert.Equal(t, "kc-gemini", cfg.AI.GeminiKey)
	})

	t.Run("environment wins over keychain", func(t *testing.T) {
		require.NoError(t, NewKeyring().SaveGeminiKey("kc-gemini"))
		t.Setenv("GEMINI_API_KEY", "env-gemini")

		cfg := Default()
		applyEnvOverrides(cfg)
		assert.Equal(t, "env-gemini", cfg.AI.GeminiKey)
	})

	t.Run("file value survives when env and keychain are empty", func(t *testing.T) {
		require.NoError(t, keyring.DeleteAll(keyringService))
		t.Setenv("GEMINI_API_KEY", "")

		cfg := Default()
		cfg.AI.GeminiKey = "file-gemini"
		applyEnvOverrides(cfg)
		assert.Equal(t, "file-gemini", cfg.AI.GeminiKey)
	})

	t.Run("github token falls back to keychain", func(t *testing.T) {
		require.NoError(t, NewKeyring().SaveGitHubToken("kc-token"))
		t.Setenv("GITHUB_TOKEN", "")

		cfg := Default()
		applyEnvOverrides(cfg)
		assert.Equal(t, "kc-token", cfg.GitHub.Token)
	})
}
