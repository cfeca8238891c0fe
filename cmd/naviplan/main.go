// Package main is the naviplan command: it runs a planning strategy against a lane map, replayed
// localization and operator pad commands read from a file or stdin.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/openav/naviplan/logging"
	// registers the navi strategy.
	_ "github.com/openav/naviplan/services/planning/navi"
)

const (
	flagConfig       = "config"
	flagLocalization = "localization"
	flagPads         = "pads"
	flagDuration     = "duration"
	flagJSON         = "json"
	flagDebug        = "debug"
)

// newApp builds the command line application writing results to out and logs to errOut.
func newApp(out, errOut io.Writer) *cli.App {
	configFlag := &cli.StringFlag{
		Name:     flagConfig,
		Aliases:  []string{"c"},
		Usage:    "load planner configuration from `FILE`",
		Required: true,
	}
	return &cli.App{
		Name:            "naviplan",
		Usage:           "run the navigation-mode trajectory planner",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging regardless of the configured level",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "plan until interrupted or until --duration elapses",
				Action: RunAction,
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{
						Name:  flagLocalization,
						Usage: "replay localization samples from a JSON lines `FILE`, one per tick",
					},
					&cli.StringFlag{
						Name:  flagPads,
						Usage: "read pad commands from `FILE`, - for stdin",
					},
					&cli.DurationFlag{
						Name:  flagDuration,
						Usage: "stop after this long; zero runs until interrupted",
					},
					&cli.BoolFlag{
						Name:  flagJSON,
						Usage: "write every planning result to stdout as a JSON line",
					},
				},
			},
			{
				Name:   "validate",
				Usage:  "check a configuration file and its lane map",
				Action: ValidateAction,
				Flags:  []cli.Flag{configFlag},
			},
			{
				Name:   "strategies",
				Usage:  "list the registered planning strategies",
				Action: StrategiesAction,
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		logging.Global().Errorw("naviplan failed", "error", err)
		stop()
		os.Exit(1)
	}
}
