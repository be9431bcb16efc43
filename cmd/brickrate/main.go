// BrickRate CLI - estimativas de custo de construção no terminal
//
// Usage:
//   brickrate estimate --length 10 --width 8 --floors 2 --city Bhopal --type 2bhk
//   brickrate say "estimate 2 bhk in bhopal 10 by 8" "save" "download"
//   brickrate quotes list|delete <index>|export <file>
//   brickrate migrate up|down|version|status
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/cleberrangel/brickrate-api/internal/cache"
	"github.com/cleberrangel/brickrate-api/internal/config"
	"github.com/cleberrangel/brickrate-api/internal/database"
	"github.com/cleberrangel/brickrate-api/internal/logger"
	"github.com/cleberrangel/brickrate-api/internal/migration"
	"github.com/cleberrangel/brickrate-api/internal/model"
	"github.com/cleberrangel/brickrate-api/internal/repository"
	"github.com/cleberrangel/brickrate-api/internal/service"
)

var version = "dev"

// cliClientID identifica o estado de trabalho do terminal
const cliClientID = "cli"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "brickrate",
		Usage:   "Construction cost estimator for Indian cities",
		Version: version,

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "Directory where saved quotes are kept",
				EnvVars: []string{"DATA_DIR"},
			},
		},

		Before: func(c *cli.Context) error {
			logger.InitWithWriter(c.String("log-level"), false, os.Stderr)
			return nil
		},

		Commands: []*cli.Command{
			estimateCommand(),
			sayCommand(),
			quotesCommand(),
			migrateCommand(),
		},
	}
}

func estimateCommand() *cli.Command {
	return &cli.Command{
		Name:  "estimate",
		Usage: "Estimate the cost range for a plot",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "length", Aliases: []string{"l"}, Usage: "Plot length in metres", Required: true},
			&cli.Float64Flag{Name: "width", Aliases: []string{"w"}, Usage: "Plot width in metres", Required: true},
			&cli.IntFlag{Name: "floors", Aliases: []string{"f"}, Value: 1, Usage: "Number of floors"},
			&cli.StringFlag{Name: "city", Aliases: []string{"c"}, Usage: "City name"},
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Value: string(model.HouseType2BHK), Usage: "House type (1bhk, 2bhk, kothi)"},
			&cli.Float64Flag{Name: "rate", Usage: "Override rate in ₹ per sq.ft"},
			&cli.BoolFlag{Name: "json", Usage: "Print the full result as JSON"},
		},
		Action: runEstimate,
	}
}

func runEstimate(c *cli.Context) error {
	req := model.EstimateRequest{
		LengthM:   c.Float64("length"),
		WidthM:    c.Float64("width"),
		Floors:    c.Int("floors"),
		CityName:  c.String("city"),
		HouseType: model.HouseType(strings.ToLower(c.String("type"))),
	}
	if c.IsSet("rate") {
		rate := c.Float64("rate")
		req.OverrideRate = &rate
	}

	est := service.NewEstimator().Estimate(req)
	r := service.Render(est)

	if c.Bool("json") {
		return printJSON(c.App.Writer, r)
	}
	printRendering(c.App.Writer, r)
	return nil
}

func sayCommand() *cli.Command {
	return &cli.Command{
		Name:      "say",
		Usage:     "Run one or more voice-style commands in order",
		ArgsUsage: "<utterance> [utterance...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Value: ".", Usage: "Directory for downloaded estimate documents"},
		},
		Action: runSay,
	}
}

func runSay(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one utterance is required")
	}

	kv, err := repository.NewFileStore(c.String("data-dir"))
	if err != nil {
		return err
	}

	state := cache.NewCache(service.DefaultStateTTL)
	defer state.Stop()

	estimates := service.NewEstimateService(repository.NewQuoteStore(kv), state, 0)
	// O terminal é sempre tratado como usuário local logado
	user := &service.User{Identity: "local", DisplayName: "local"}

	w := c.App.Writer
	for _, text := range c.Args().Slice() {
		result, err := estimates.Command(c.Context, cliClientID, user, text)
		if err != nil {
			return fmt.Errorf("command %q: %w", text, err)
		}

		fmt.Fprintf(w, "> %s\n", text)
		if result.Rendering != nil {
			printRendering(w, *result.Rendering)
		} else {
			fmt.Fprintln(w, result.Message)
		}

		if result.Document != nil {
			path := filepath.Join(c.String("out"), result.Document.Filename)
			if err := os.WriteFile(path, result.Document.Content.Bytes(), 0644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Fprintf(w, "Saved %s\n", path)
		}
	}
	return nil
}

func quotesCommand() *cli.Command {
	return &cli.Command{
		Name:  "quotes",
		Usage: "Manage saved quotes",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List saved quotes, newest first",
				Flags:  []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "Print as JSON"}},
				Action: runQuotesList,
			},
			{
				Name:      "delete",
				Usage:     "Delete the quote at the given index",
				ArgsUsage: "<index>",
				Action:    runQuotesDelete,
			},
			{
				Name:      "export",
				Usage:     "Export all saved quotes to an XLSX file",
				ArgsUsage: "<file>",
				Action:    runQuotesExport,
			},
		},
	}
}

func openQuotes(c *cli.Context) (*service.EstimateService, func(), error) {
	kv, err := repository.NewFileStore(c.String("data-dir"))
	if err != nil {
		return nil, nil, err
	}
	state := cache.NewCache(service.DefaultStateTTL)
	return service.NewEstimateService(repository.NewQuoteStore(kv), state, 0), state.Stop, nil
}

func runQuotesList(c *cli.Context) error {
	estimates, stop, err := openQuotes(c)
	if err != nil {
		return err
	}
	defer stop()

	quotes, err := estimates.ListQuotes(c.Context)
	if err != nil {
		return err
	}

	if c.Bool("json") {
		return printJSON(c.App.Writer, quotes)
	}
	if len(quotes) == 0 {
		fmt.Fprintln(c.App.Writer, "No saved quotes")
		return nil
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tCITY\tRANGE\tAVERAGE\tSAVED")
	for i, q := range quotes {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			i, service.CityLabel(q.CityName), service.RangeText(q),
			service.FormatINR(q.AvgTotal), q.Timestamp.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runQuotesDelete(c *cli.Context) error {
	index, err := strconv.Atoi(c.Args().First())
	if err != nil {
		return fmt.Errorf("invalid index %q", c.Args().First())
	}

	estimates, stop, err := openQuotes(c)
	if err != nil {
		return err
	}
	defer stop()

	if err := estimates.DeleteQuote(c.Context, index); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, service.MsgQuoteDeleted)
	return nil
}

func runQuotesExport(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("output file is required")
	}

	estimates, stop, err := openQuotes(c)
	if err != nil {
		return err
	}
	defer stop()

	doc, err := estimates.ExportQuotes(c.Context)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, doc.Content.Bytes(), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(c.App.Writer, "Exported to %s\n", path)
	return nil
}

// migrateCommand aplica as migrations do backend postgres (DB_* do ambiente)
func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the PostgreSQL schema",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply pending migrations",
				Action: withMigrator(func(ctx context.Context, m *migration.Migrator) error {
					return m.Run(ctx)
				}),
			},
			{
				Name:  "down",
				Usage: "Roll back the last migration",
				Action: withMigrator(func(ctx context.Context, m *migration.Migrator) error {
					return m.Rollback(ctx)
				}),
			},
			{
				Name:  "version",
				Usage: "Print the current schema version",
				Action: withMigrator(func(ctx context.Context, m *migration.Migrator) error {
					v, err := m.Version(ctx)
					if err != nil {
						return err
					}
					fmt.Println(v)
					return nil
				}),
			},
			{
				Name:   "status",
				Usage:  "List known migrations and whether each is applied",
				Action: withMigrator(printMigrationStatus),
			},
		},
	}
}

func withMigrator(fn func(ctx context.Context, m *migration.Migrator) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		db, err := database.Connect(c.Context, database.Config{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		})
		if err != nil {
			return err
		}
		defer database.Close(db)

		return fn(c.Context, migration.NewMigrator(db))
	}
}

func printMigrationStatus(ctx context.Context, m *migration.Migrator) error {
	statuses, err := m.Status(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED")
	for _, s := range statuses {
		fmt.Fprintf(w, "%d\t%s\t%v\n", s.Version, s.Name, s.Applied)
	}
	return w.Flush()
}

func printRendering(w io.Writer, r service.Rendering) {
	s := r.Summary
	fmt.Fprintf(w, "Plot:     %s\n", s.Plot)
	fmt.Fprintf(w, "Built-up: %s\n", s.BuiltUp)
	fmt.Fprintf(w, "City:     %s\n", s.City)
	fmt.Fprintf(w, "Range:    %s\n", s.Range)
	fmt.Fprintf(w, "Average:  %s\n", s.Average)
	for i, label := range r.Chart.Labels {
		fmt.Fprintf(w, "  %-13s %s\n", label+":", service.FormatINR(r.Chart.Values[i]))
	}
	fmt.Fprintln(w, r.Speech)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
