package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/mantavya0807/Github-Doctor/internal/agent"
	"github.com/mantavya0807/Github-Doctor/internal/config"
	"github.com/mantavya0807/Github-Doctor/internal/fix"
	"github.com/mantavya0807/Github-Doctor/internal/gh"
	"github.com/mantavya0807/Github-Doctor/internal/llm"
)

var (
	analyzeBranch string
	analyzeJSON   bool
	analyzeOpen   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <owner/repo>",
	Short: "Analyze a repository and report detected issues",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		manager, err := config.NewManager(cfg.Agent)
		if err != nil {
			return err
		}

		aiClient, err := llm.NewClient(ctx, cfg.AI)
		if err != nil {
			return err
		}
		var aiGen *fix.AIGenerator
		if aiClient.Enabled() {
			aiGen = fix.NewAIGenerator(aiClient)
		}

		host := gh.NewClient(cfg.GitHub.Token, cfg.GitHub.RateLimit, cfg.GitHub.Timeout)
		controller := agent.NewController(agent.Options{
			Host:       host,
			Fixes:      fix.NewEngine(aiGen),
			Config:     manager,
			AIEnabled:  aiClient.Enabled(),
			AIProvider: string(aiClient.Provider()),
		})

		result, err := controller.AnalyzeRepository(ctx, args[0], analyzeBranch, nil)
		if err != nil {
			return err
		}

		if analyzeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		fmt.Printf("Repository:     %s (%s)\n", result.Repository, result.Branch)
		fmt.Printf("Files analyzed: %d (skipped %d)\n", result.FilesAnalyzed, result.FilesSkipped)
		fmt.Printf("Issues found:   %d\n", result.TotalIssues)
		fmt.Printf("Security score: %d/100 (%s risk)\n", result.SecurityScore, result.RiskLevel)

		for _, file := range result.Files {
			if file.Error != "" {
				fmt.Printf("\n  %s: %s\n", file.Filename, file.Error)
				continue
			}
			if len(file.Issues) == 0 {
				continue
			}
			fmt.Printf("\n  %s\n", file.Filename)
			for _, issue := range file.Issues {
				fmt.Printf("    L%d [%s] %s\n", issue.Line, issue.Severity, issue.Message)
			}
		}

		if result.FixResult != nil {
			fmt.Printf("\nOpened %s\n", result.FixResult.RequestURL)
			if analyzeOpen {
				if err := browser.OpenURL(result.FixResult.RequestURL); err != nil {
					logger.WithError(err).Warn("Failed to open browser")
				}
			}
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeBranch, "branch", "b", "", "branch to analyze (default: repository default branch)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the full result as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeOpen, "open", false, "open the created pull request in a browser")
}
