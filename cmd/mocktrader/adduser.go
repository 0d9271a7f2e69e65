package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/efreitasn/mocktrader/internal/config"
	"github.com/efreitasn/mocktrader/internal/service"
)

type addUserCmd struct {
	envFile  string
	username string
	password string
}

func (*addUserCmd) Name() string     { return "adduser" }
func (*addUserCmd) Synopsis() string { return "register an investor directly in the store" }
func (*addUserCmd) Usage() string {
	return `adduser -username <name> -password <password> [-env <file>]

  Registers an investor in the configured store without going through HTTP.
  Only useful with STORE_DRIVER=sqlite; the memory store is discarded on exit.
`
}

func (c *addUserCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.envFile, "env", ".env", "dotenv file to load before reading the environment")
	f.StringVar(&c.username, "username", "", "username (required)")
	f.StringVar(&c.password, "password", "", "password (required)")
}

func (c *addUserCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.username == "" || c.password == "" {
		fmt.Fprintln(os.Stderr, "Error: -username and -password are required.")
		return subcommands.ExitUsageError
	}

	cfg, err := config.LoadWithEnvFile(c.envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return subcommands.ExitFailure
	}
	logger := newLogger(os.Stderr, cfg.LogLevel)

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		return subcommands.ExitFailure
	}
	defer repos.close()

	authSvc := service.NewAuthService(repos.investors, repos.sessions, cfg.BcryptCost, cfg.SessionTTL, logger)
	inv, err := authSvc.Register(ctx, c.username, c.password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error registering %q: %v\n", c.username, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("investor %d created: %s\n", inv.InvestorID, inv.Username)
	return subcommands.ExitSuccess
}
