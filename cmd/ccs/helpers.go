package main

import (
	"os"

	"github.com/matsen/ccslog/internal/auth"
	"github.com/matsen/ccslog/internal/config"
	"github.com/matsen/ccslog/internal/githost"
	"github.com/matsen/ccslog/internal/vstore"
)

// openStore resolves configuration and builds the versioned store.
// It exits with a config error when the repository is not set up.
func openStore() (*vstore.Store, *config.Config) {
	cfg, err := config.Load()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	host, err := githost.NewClient(cfg.Repo, githost.WithToken(cfg.GitHubToken))
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return vstore.New(host), cfg
}

// requireAuth gates mutating commands behind the configured users.
// With no users configured (or CCS_NO_AUTH=1) the gate is open.
func requireAuth(cfg *config.Config) {
	if len(cfg.Users) == 0 || os.Getenv("CCS_NO_AUTH") == "1" {
		return
	}

	user := os.Getenv("CCS_USER")
	pass := os.Getenv("CCS_PASSWORD")
	if user == "" || pass == "" {
		exitWithError(ExitAuthError, "credentials required: set CCS_USER and CCS_PASSWORD")
	}
	if !auth.NewChecker(cfg.Users).Authenticate(user, pass) {
		exitWithError(ExitAuthError, "invalid username or password")
	}
}
