package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "signal",
		Usage: "manage API keys and deployments with a wallet-signed session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to a YAML config file", EnvVars: []string{"SIGNAL_CONFIG"}},
			&cli.StringFlag{Name: "api-url", Usage: "platform API base URL"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
		},
		Commands: []*cli.Command{
			stateCommand(),
			loginCommand(),
			logoutCommand(),
			whoamiCommand(),
			keysCommand(),
			deploymentsCommand(),
		},
	}
}
