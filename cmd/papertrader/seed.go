package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/thrasher-corp/papertrader/backtester/data/kline/csv"
	dbloader "github.com/thrasher-corp/papertrader/backtester/data/kline/database"
	"github.com/thrasher-corp/papertrader/database"
	"github.com/urfave/cli/v2"
)

var errNoSeedFile = errors.New("a symbol and a csv file are required")

func newSeedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "seed the database",
		Subcommands: []*cli.Command{
			{
				Name:      "candle",
				Usage:     "seed candle data from a bar file so it can be replayed with the database source",
				ArgsUsage: "<symbol> <filename>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "symbol",
						Usage: "ticker of the supplied candle data",
					},
					&cli.StringFlag{
						Name:      "filename",
						Usage:     "CSV file to load candle data from",
						TakesFile: true,
					},
					&cli.StringFlag{
						Name:  "database",
						Usage: "sqlite file to seed, overrides the configured database",
					},
				},
				Action: seedCandleFromFile,
			},
		},
	}
}

func seedCandleFromFile(c *cli.Context) error {
	if c.NumFlags() == 0 && c.NArg() == 0 {
		return cli.ShowSubcommandHelp(c)
	}

	var symbol string
	if c.IsSet("symbol") {
		symbol = c.String("symbol")
	} else {
		symbol = c.Args().Get(0)
	}

	var fileName string
	if c.IsSet("filename") {
		fileName = c.String("filename")
	} else {
		fileName = c.Args().Get(1)
	}
	if symbol == "" || fileName == "" {
		return errNoSeedFile
	}
	if _, err := os.Stat(fileName); err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if !cfg.Database.Enabled {
		return database.ErrDatabaseSupportDisabled
	}
	db, err := database.Connect(c.Context, &cfg.Database)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	bars, err := csv.LoadFile(fileName, strings.ToUpper(symbol), time.Time{}, time.Time{})
	if err != nil {
		return err
	}
	totalInserted, err := dbloader.Store(c.Context, db, strings.ToUpper(symbol), bars)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Inserted: %v records\n", totalInserted)
	return nil
}
