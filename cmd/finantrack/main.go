// Command finantrack reads and records transactions from the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/dvloznov/finantrack/internal/config"
	"github.com/dvloznov/finantrack/internal/logger"
	"github.com/dvloznov/finantrack/internal/service"
	"github.com/dvloznov/finantrack/internal/store"
	"github.com/dvloznov/finantrack/internal/suggest"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

var (
	cfg    config.Config
	userID = flag.String("user", os.Getenv("FINANTRACK_USER"), "acting user id (or set FINANTRACK_USER)")
)

func main() {
	if err := config.LoadEnvFiles(config.EnvFiles...); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(int(subcommands.ExitFailure))
	}
	cfg.RegisterFlags(flag.CommandLine)
	// The flag default above was read before the env files were loaded.
	if *userID == "" {
		*userID = os.Getenv("FINANTRACK_USER")
	}

	name := path.Base(os.Args[0])
	completion(name).Complete(name)

	commander := subcommands.NewCommander(flag.CommandLine, name)
	register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

func register(c *subcommands.Commander) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(&historyCmd{}, "history")
	c.Register(&chartCmd{}, "history")
	c.Register(&exportCmd{}, "history")
	c.Register(&reportCmd{}, "history")

	c.Register(&categoriesCmd{}, "ledger")
	c.Register(&recordCmd{}, "ledger")
}

// openService validates the configuration and opens the backend. The
// returned store must be closed by the caller.
func openService(ctx context.Context) (*service.Service, store.Backend, zerolog.Logger, error) {
	log := logger.NewWithLevel(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return nil, nil, log, err
	}
	if *userID == "" {
		return nil, nil, log, fmt.Errorf("-user is required")
	}
	backend, err := config.OpenBackend(ctx, &cfg, log)
	if err != nil {
		return nil, nil, log, err
	}
	var suggester service.Suggester
	if cfg.GeminiAPIKey != "" {
		classifier, err := suggest.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
		if err != nil {
			backend.Close()
			return nil, nil, log, err
		}
		suggester = classifier
	}
	svc := service.New(backend, suggester, service.Options{
		Locale:   cfg.Lang(),
		Location: cfg.Location(),
		Currency: cfg.Currency,
	}, log)
	return svc, backend, log, nil
}
