package main

import (
	"github.com/matsen/ccslog/internal/auth"
	"github.com/matsen/ccslog/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configHashPasswordCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change CLI configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			exitWithError(ExitConfigError, "loading config: %v", err)
		}

		if humanOutput {
			outputHuman("repo:     %s\ncsv_path: %s\ntoken:    %s\nusers:    %d\n",
				cfg.Repo, cfg.CSVPath, maskToken(cfg.GitHubToken), len(cfg.Users))
			return nil
		}
		// Never print the token itself.
		return outputJSON(map[string]any{
			"repo":      cfg.Repo,
			"csv_path":  cfg.CSVPath,
			"token_set": cfg.GitHubToken != "",
			"users":     len(cfg.Users),
			"path":      config.GlobalConfigPath(),
		})
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value (repo, csv_path, github_token)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			exitWithError(ExitConfigError, "loading config: %v", err)
		}

		switch args[0] {
		case "repo":
			cfg.Repo = args[1]
		case "csv_path":
			cfg.CSVPath = args[1]
		case "github_token":
			cfg.GitHubToken = args[1]
		default:
			exitWithError(ExitError, "unknown key %q (valid: repo, csv_path, github_token)", args[0])
		}

		if err := cfg.Save(); err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}
		if humanOutput {
			outputHuman("Saved %s.\n", args[0])
			return nil
		}
		return outputJSON(map[string]string{"saved": args[0]})
	},
}

var configHashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Hash a password for the users config",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashPassword(args[0])
		if err != nil {
			exitWithError(ExitError, "hashing password: %v", err)
		}
		if humanOutput {
			outputHuman("%s\n", hash)
			return nil
		}
		return outputJSON(map[string]string{"hash": hash})
	},
}

func maskToken(token string) string {
	if token == "" {
		return "(not set)"
	}
	return "****"
}
