package main

import (
	"fmt"
	"os"

	"github.com/thrasher-corp/papertrader/database"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "papertrader"
	app.Usage = "backtest and paper trade equity strategies"
	app.EnableBashCompletion = true
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "the config file to load, papertrader.yaml in the working directory is used when unset",
		},
		&cli.StringFlag{
			Name:  "loglevel",
			Usage: "the levels to log, eg INFO|WARN|ERROR",
		},
		&cli.StringFlag{
			Name:  "logformat",
			Usage: "the log format, text or json",
		},
		&cli.StringFlag{
			Name:      "migration-dir",
			Usage:     "override the database migration folder",
			Value:     database.MigrationDir,
			TakesFile: true,
		},
	}
	app.Commands = []*cli.Command{
		newBacktestCommand(),
		newPaperCommand(),
		strategiesCommand,
		newSeedCommand(),
	}
	return app
}
