// Command tokenauthctl runs the operational tasks around a tokenauth deployment: key
// generation, schema migration, client seeding, and refresh token purging.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrEthical07/tokenauth/internal/config"
	"github.com/MrEthical07/tokenauth/internal/logging"
	"go.uber.org/zap"
)

const usage = `usage: tokenauthctl [-config file.yaml] <command> [flags]

commands:
  keygen        generate an RSA key pair (-dir, -bits)
  migrate       apply database migrations
  seed-clients  insert the HRM and CRM clients from configuration
  purge         delete expired refresh tokens (-retention)
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	global := flag.NewFlagSet("tokenauthctl", flag.ContinueOnError)
	configPath := global.String("config", "", "optional YAML settings file")
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	if err := global.Parse(args); err != nil {
		return 2
	}
	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return 2
	}

	// keygen needs no settings, so it works before any environment exists.
	if rest[0] == "keygen" {
		if err := runKeygen(rest[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "keygen: %v\n", err)
			return 1
		}
		return 0
	}

	settings, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	log, err := logging.New(logging.Config{
		Level:  settings.Log.Level,
		Pretty: settings.Pretty(),
		App:    "tokenauthctl",
		Env:    settings.App.Env,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch rest[0] {
	case "migrate":
		err = runMigrate(ctx, settings, log)
	case "seed-clients":
		err = runSeed(ctx, settings, log)
	case "purge":
		err = runPurge(ctx, settings, log, rest[1:])
	default:
		global.Usage()
		return 2
	}
	if err != nil {
		log.Error("command failed", zap.String("command", rest[0]), zap.Error(err))
		return 1
	}
	return 0
}
