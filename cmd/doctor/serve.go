package main

import (
	"github.com/spf13/cobra"

	"github.com/mantavya0807/Github-Doctor/internal/agent"
	"github.com/mantavya0807/Github-Doctor/internal/api"
	"github.com/mantavya0807/Github-Doctor/internal/config"
	"github.com/mantavya0807/Github-Doctor/internal/fix"
	"github.com/mantavya0807/Github-Doctor/internal/gh"
	"github.com/mantavya0807/Github-Doctor/internal/history"
	"github.com/mantavya0807/Github-Doctor/internal/llm"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook and operator API server",
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

		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		host := gh.NewClient(cfg.GitHub.Token, cfg.GitHub.RateLimit, cfg.GitHub.Timeout)
		controller := agent.NewController(agent.Options{
			Host:       host,
			Fixes:      fix.NewEngine(aiGen),
			Config:     manager,
			Recorder:   store,
			AIEnabled:  aiClient.Enabled(),
			AIProvider: string(aiClient.Provider()),
		})

		logger.WithField("addr", cfg.Server.Addr).Info("Starting Github-Doctor server")
		return api.New(cfg.Server, controller, manager, store).ListenAndServe()
	},
}
