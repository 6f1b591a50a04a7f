package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"envmon/internal/app"
	"envmon/internal/config"
	"envmon/internal/csvimport"
	"envmon/internal/db"
	"envmon/internal/logging"
	"envmon/internal/migrate"
	"envmon/internal/modules/readings/policy"
	"envmon/internal/modules/readings/report"
	"envmon/internal/modules/readings/service"
)

const appName = "envctl"

var version = "dev"

const usage = `usage: envctl <command> [flags]

commands:
  migrate              apply pending schema migrations (sqlite) or ensure indexes (mongo)
  migrations           list embedded migrations and whether they are applied
  import FILE          import readings from a CSV file
  report [-hours N]    print the report for the last N hours (-json for JSON)
`

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewWithWriter(os.Stderr, logging.Options{
		AppEnv:  cfg.AppEnv,
		Level:   cfg.LogLevel,
		Version: version,
		AppName: appName,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, os.Args[1:], os.Stdout, os.Stderr, time.Now)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, cfg config.Config, args []string, stdout, stderr io.Writer, now func() time.Time) int {
	if len(args) < 1 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "migrate":
		err = runMigrate(ctx, cfg, stdout)
	case "migrations":
		err = runMigrations(cfg, stdout)
	case "import":
		var imported int
		imported, err = runImport(ctx, cfg, args[1:], stdout, now)
		if err == nil && imported == 0 {
			err = errors.New("no rows imported")
		}
	case "report":
		err = runReport(ctx, cfg, args[1:], stdout, now)
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n%s", args[0], usage)
		return 2
	}

	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", args[0], err)
		return 1
	}
	return 0
}

// runMigrate relies on OpenStore, which migrates SQLite and creates the Mongo
// indexes on open.
func runMigrate(ctx context.Context, cfg config.Config, stdout io.Writer) error {
	_, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	closeStore()
	fmt.Fprintln(stdout, "migrations applied")
	return nil
}

func runMigrations(cfg config.Config, stdout io.Writer) error {
	if cfg.DBDriver != config.DriverSQLite {
		return fmt.Errorf("migrations are only tracked for %s", config.DriverSQLite)
	}
	conn, err := db.Open(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(conn) }()

	all, err := migrate.List(conn)
	if err != nil {
		return err
	}
	for _, m := range all {
		state := "pending"
		if m.Applied {
			state = "applied"
		}
		fmt.Fprintf(stdout, "%s_%s\t%s\n", m.Version, m.Name, state)
	}
	return nil
}

func runImport(ctx context.Context, cfg config.Config, args []string, stdout io.Writer, now func() time.Time) (int, error) {
	if len(args) != 1 {
		return 0, errors.New("expected exactly one CSV file")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return 0, err
	}
	defer f.Close()

	store, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer closeStore()

	ing, err := service.NewIngester(store, cfg.Thresholds, service.WithClock(now))
	if err != nil {
		return 0, err
	}

	res, err := csvimport.Import(ctx, f, ing, now())
	printImport(stdout, res)
	if err != nil {
		return res.Imported, err
	}
	return res.Imported, nil
}

func printImport(w io.Writer, res csvimport.Result) {
	fmt.Fprintf(w, "rows: %d, imported: %d\n", res.Rows, res.Imported)

	kinds := make([]policy.ValidationKind, 0, len(res.Rejected))
	for k := range res.Rejected {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, k := range kinds {
		fmt.Fprintf(w, "rejected %s: %d\n", k, res.Rejected[k])
	}

	statuses := make([]string, 0, len(res.Statuses))
	for s, n := range res.Statuses {
		statuses = append(statuses, fmt.Sprintf("%s: %d", s, n))
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		fmt.Fprintf(w, "status %s\n", s)
	}

	for _, e := range res.Errors {
		fmt.Fprintf(w, "  %v\n", e)
	}
}

func runReport(ctx context.Context, cfg config.Config, args []string, stdout io.Writer, now func() time.Time) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	hours := fs.Int("hours", report.DefaultHours, "report window in hours")
	asJSON := fs.Bool("json", false, "print JSON instead of text")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	r, err := report.Generate(ctx, service.NewQuerier(store), *hours, now())
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	_, err = io.WriteString(stdout, report.FormatText(r))
	return err
}
