package config

import (
	"fmt"
	"log/slog"

	"github.com/zalando/go-keyring"
)

const (
	// keyringService is the service name in the OS keychain.
	keyringService = "Github-Doctor"

	keyringGitHubTokenItem = "github-token"
	keyringOpenAIKeyItem   = "openai-api-key"
	keyringGeminiKeyItem   = "gemini-api-key"
)

// Keyring stores credentials in the OS keychain so they never land in the
// config file.
type Keyring struct {
	logger *slog.Logger
}

// NewKeyring creates a keychain-backed credential store.
func NewKeyring() *Keyring {
	return &Keyring{logger: slog.Default().With("component", "keyring")}
}

func (k *Keyring) get(item string) (string, error) {
	value, err := keyring.Get(keyringService, item)
	if err == keyring.ErrNotFound {
		return "", nil // not set yet, not an error
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s from OS keychain: %w", item, err)
	}
	return value, nil
}

func (k *Keyring) set(item, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", item)
	}
	if err := keyring.Set(keyringService, item, value); err != nil {
		return fmt.Errorf("failed to save %s to OS keychain: %w", item, err)
	}
	k.logger.Info("credential saved to keychain", "item", item)
	return nil
}

// GitHubToken returns the stored GitHub token, or "" when unset.
func (k *Keyring) GitHubToken() (string, error) { return k.get(keyringGitHubTokenItem) }

// SaveGitHubToken stores the GitHub token.
func (k *Keyring) SaveGitHubToken(token string) error { return k.set(keyringGitHubTokenItem, token) }

// OpenAIKey returns the stored OpenAI API key, or "" when unset.
func (k *Keyring) OpenAIKey() (string, error) { return k.get(keyringOpenAIKeyItem) }

// SaveOpenAIKey stores the OpenAI API key.
func (k *Keyring) SaveOpenAIKey(key string) error { return k.set(keyringOpenAIKeyItem, key) }

// GeminiKey returns the stored Gemini API key, or "" when unset.
func (k *Keyring) GeminiKey() (string, error) { return k.get(keyringGeminiKeyItem) }

// SaveGeminiKey stores the Gemini API key.
func (k *Keyring) SaveGeminiKey(key string) error { return k.set(keyringGeminiKeyItem, key) }
