package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mantavya0807/Github-Doctor/internal/config"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Store credentials in the OS keychain",
	Long: `Prompts for the GitHub token and AI provider keys and stores them in the
operating system keychain. Values entered here take effect unless overridden
by environment variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kr := config.NewKeyring()

		token, err := promptSecret("GitHub token (blank to keep current): ")
		if err != nil {
			return err
		}
		if token != "" {
			if err := kr.SaveGitHubToken(token); err != nil {
				return fmt.Errorf("save github token: %w", err)
			}
			fmt.Println("GitHub token saved.")
		}

		provider, err := promptLine("AI provider [gemini/openai/none] (blank to keep current): ")
		if err != nil {
			return err
		}

		switch strings.ToLower(provider) {
		case "openai":
			key, err := promptSecret("OpenAI API key: ")
			if err != nil {
				return err
			}
			if key != "" {
				if err := kr.SaveOpenAIKey(key); err != nil {
					return fmt.Errorf("save openai key: %w", err)
				}
				fmt.Println("OpenAI key saved.")
			}
		case "gemini":
			key, err := promptSecret("Gemini API key: ")
			if err != nil {
				return err
			}
			if key != "" {
				if err := kr.SaveGeminiKey(key); err != nil {
					return fmt.Errorf("save gemini key: %w", err)
				}
				fmt.Println("Gemini key saved.")
			}
		case "", "none":
		default:
			return fmt.Errorf("unknown provider %q", provider)
		}

		if provider != "" {
			cfg.AI.Provider = strings.ToLower(provider)
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			path := filepath.Join(home, ".github-doctor", "config.yaml")
			if err := cfg.Save(path); err != nil {
				return err
			}
			fmt.Printf("Configuration written to %s\n", path)
		}
		return nil
	},
}

func promptSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	value, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(string(value)), nil
}

func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
