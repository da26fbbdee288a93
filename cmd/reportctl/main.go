package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/v18mgazy/Ghazyy-sub002/internal/config"
	"github.com/v18mgazy/Ghazyy-sub002/internal/domain"
	"github.com/v18mgazy/Ghazyy-sub002/internal/export"
	"github.com/v18mgazy/Ghazyy-sub002/internal/logging"
	"github.com/v18mgazy/Ghazyy-sub002/internal/report"
	"github.com/v18mgazy/Ghazyy-sub002/internal/service"
	"github.com/v18mgazy/Ghazyy-sub002/internal/store"
	"github.com/v18mgazy/Ghazyy-sub002/internal/store/memory"
	pgstore "github.com/v18mgazy/Ghazyy-sub002/internal/store/postgres"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "reportctl",
		Short:         "Generate POS reports offline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newGenerateCommand(), newSnapshotCommand())
	return root
}

type generateCmd struct {
	reportType string
	date       string
	start      string
	end        string
	snapshot   string
	format     string
	out        string
	locale     string
	timezone   string
	compare    bool
	verbose    bool
}

func newGenerateCommand() *cobra.Command {
	g := &generateCmd{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Compute a report from Postgres or a snapshot file",
		RunE:  g.run,
	}
	cmd.Flags().StringVar(&g.reportType, "type", domain.ReportDaily, "report type: daily, weekly, monthly or yearly")
	cmd.Flags().StringVar(&g.date, "date", "", "period date (YYYY-MM-DD, YYYY-MM or YYYY)")
	cmd.Flags().StringVar(&g.start, "start", "", "range start date, overrides --date")
	cmd.Flags().StringVar(&g.end, "end", "", "range end date")
	cmd.Flags().StringVar(&g.snapshot, "snapshot", "", "read records from a JSON snapshot instead of DATABASE_URL")
	cmd.Flags().StringVar(&g.format, "format", "json", "output format: json, csv, xlsx or html")
	cmd.Flags().StringVarP(&g.out, "out", "o", "", "output file, stdout when empty")
	cmd.Flags().StringVar(&g.locale, "locale", "", "bucket label language (en, ar, id)")
	cmd.Flags().StringVar(&g.timezone, "timezone", "", "IANA time zone for periods")
	cmd.Flags().BoolVar(&g.compare, "compare", false, "include totals of the previous period")
	cmd.Flags().BoolVarP(&g.verbose, "verbose", "v", false, "debug logging on stderr")
	return cmd
}

func (g *generateCmd) run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	level := "warn"
	if g.verbose {
		level = "debug"
	}
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), level, "console")
	ctx := logger.WithContext(cmd.Context())

	if g.timezone == "" {
		g.timezone = cfg.ReportTimezone
	}
	if g.locale == "" {
		g.locale = cfg.ReportLocale
	}
	location, err := time.LoadLocation(g.timezone)
	if err != nil {
		return fmt.Errorf("timezone %q: %w", g.timezone, err)
	}

	repo, closeRepo, err := openRepository(ctx, g.snapshot, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer closeRepo()

	opts := domain.ReportOptions{Type: g.reportType, Date: g.date, Locale: g.locale, Location: location}
	if g.start != "" || g.end != "" {
		opts.DateRange = &domain.DateRange{StartDate: g.start, EndDate: g.end}
	}

	generator := report.NewGenerator(repo, report.WithLocation(location), report.WithLocale(g.locale))
	result, err := service.New(repo, generator, nil, location).Report(ctx, opts, g.compare)
	if err != nil {
		return err
	}

	body, err := render(g.format, export.Title(opts), result)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), g.out, body)
}

func render(format string, title string, result domain.ReportResult) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json":
		body, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(body, '\n'), nil
	case "csv":
		return export.CSV(title, result)
	case "xlsx":
		return export.XLSX(title, result)
	case "html":
		return export.PrintableHTML(title, result)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func writeOutput(stdout io.Writer, path string, body []byte) error {
	if path == "" {
		_, err := stdout.Write(body)
		return err
	}
	return os.WriteFile(path, body, 0o644)
}

// openRepository prefers a snapshot file and falls back to Postgres.
func openRepository(ctx context.Context, snapshotPath string, databaseURL string) (store.Repository, func(), error) {
	if snapshotPath != "" {
		f, err := os.Open(snapshotPath)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()
		repo, err := memory.NewFromSnapshot(f)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	}
	if databaseURL == "" {
		return nil, nil, errors.New("either --snapshot or DATABASE_URL is required")
	}
	pg, err := pgstore.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	return pg, func() {
		if err := pg.Close(); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("close postgres")
		}
	}, nil
}

func newSnapshotCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Dump the records behind reports from DATABASE_URL into a JSON snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load("")
			if err != nil {
				return err
			}
			ctx := logging.NewWithWriter(cmd.ErrOrStderr(), "warn", "console").WithContext(cmd.Context())
			repo, closeRepo, err := openRepository(ctx, "", cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer closeRepo()

			snap, err := collectSnapshot(ctx, repo)
			if err != nil {
				return err
			}
			body, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), out, append(body, '\n'))
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, stdout when empty")
	return cmd
}

func collectSnapshot(ctx context.Context, src report.Source) (store.Snapshot, error) {
	var (
		snap store.Snapshot
		err  error
	)
	if snap.Products, err = src.GetAllProducts(ctx); err != nil {
		return store.Snapshot{}, fmt.Errorf("products: %w", err)
	}
	if snap.Invoices, err = src.GetAllInvoices(ctx); err != nil {
		return store.Snapshot{}, fmt.Errorf("invoices: %w", err)
	}
	if snap.DamagedItems, err = src.GetAllDamagedItems(ctx); err != nil {
		return store.Snapshot{}, fmt.Errorf("damaged items: %w", err)
	}
	if snap.Expenses, err = src.GetAllExpenses(ctx); err != nil {
		return store.Snapshot{}, fmt.Errorf("expenses: %w", err)
	}
	snap.ExportedAt = time.Now().UTC()
	return snap, nil
}
