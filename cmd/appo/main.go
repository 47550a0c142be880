// Command appo is a command line client for the Appo scheduling service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/appo-client/api"
	"github.com/jrsteele09/appo-client/internal/config"
	applog "github.com/jrsteele09/appo-client/internal/log"
	"github.com/rs/zerolog/log"
)

const usage = `usage: appo <command> [flags]

commands:
  login -email <email> -type <role> [-password <password>]
  logout
  whoami
  appointments list [-status <status>] [-limit <n>]
  appointments cancel|confirm|complete <id>
  get <path>
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	applog.New(cfg.GetEnv(), os.Stderr)

	if err := run(ctx, cfg, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, args []string, stdin io.Reader, stdout io.Writer) error {
	global := flag.NewFlagSet("appo", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	banner := global.Bool("banner", false, "print the application banner")
	if err := global.Parse(args); err != nil {
		return errUsage
	}
	if *banner {
		fmt.Fprintln(stdout, figure.NewFigure(cfg.GetAppName(), "cybermedium", true).String())
	}
	if global.NArg() == 0 {
		return errUsage
	}

	storage, release, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(); err != nil {
			log.Warn().Err(err).Msg("failed to release token storage")
		}
	}()

	app := newApp(cfg, storage, stdin, stdout)
	command, rest := global.Arg(0), global.Args()[1:]
	switch command {
	case "login":
		return app.login(ctx, rest)
	case "logout":
		return app.logout(ctx)
	case "whoami":
		return app.whoami(ctx)
	case "appointments":
		return app.appointments(ctx, rest)
	case "get":
		return app.get(ctx, rest)
	}
	return fmt.Errorf("unknown command %q: %w", command, errUsage)
}

// describe turns a gateway error into one line for the terminal.
func describe(err error) error {
	if apiErr, ok := api.AsError(err); ok {
		if apiErr.StatusCode == 0 {
			return fmt.Errorf("%s (%s)", apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("%s (HTTP %d)", apiErr.Message, apiErr.StatusCode)
	}
	return err
}
