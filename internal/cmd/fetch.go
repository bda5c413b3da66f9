package cmd

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/quake-catalog-etl/internal/config"
	"github.com/couchcryptid/quake-catalog-etl/internal/domain"
	"github.com/couchcryptid/quake-catalog-etl/internal/observability"
	"github.com/couchcryptid/quake-catalog-etl/internal/pipeline"
)

func newFetchCommand() *cobra.Command {
	var in domain.QueryInput
	var name, outDir string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Run one catalog acquisition in the foreground",
		Long: `Download the catalog for a timespan and magnitude selection, keep only
complete in-bounds earthquakes and write <name>_checked.csv.

Examples:
  quakeetl fetch --timespan week --magnitude 4.5
  quakeetl fetch --timespan day --magnitude custom --min 2.0 --max 5.5
  quakeetl fetch --timespan custom --from 2020-01 --to 2020-04 --magnitude custom --min 4.5 --max 4.5`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFetch(cmd, in, name, outDir)
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.Timespan, "timespan", "", "hour, day, week, 30days or custom")
	f.StringVar(&in.From, "from", "", "first month of a custom timespan (YYYY-MM)")
	f.StringVar(&in.To, "to", "", "last month of a custom timespan (YYYY-MM)")
	f.StringVar(&in.Magnitude, "magnitude", "", "all, 1.0, 2.5, 4.5 or custom")
	f.StringVar(&in.MinMagnitude, "min", "", "minimum magnitude for a custom range")
	f.StringVar(&in.MaxMagnitude, "max", "", "maximum magnitude for a custom range")
	f.StringVar(&name, "name", "", "base name for the catalog files")
	f.StringVar(&outDir, "out", "", "output directory (defaults to OUTPUT_DIR)")

	return cmd
}

func runFetch(cmd *cobra.Command, in domain.QueryInput, name, outDir string) error {
	colorMode, _ := cmd.Flags().GetString("color")
	p, err := newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), colorMode)
	if err != nil {
		return err
	}

	spec, err := in.Spec()
	if err != nil {
		p.Error("%v", err)
		return &exitError{code: ExitInvalidQuery, err: err}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.NewLoggerTo(cmd.ErrOrStderr(), cfg)
	metrics := observability.NewMetricsWith(prometheus.NewRegistry())

	c := wire(cfg, logger, metrics, func(pr domain.Progress) {
		if pr.Running {
			p.Info("[%3d%%] %s", pr.Percent, pr.Status)
		}
	})
	defer c.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := c.pipeline.Run(ctx, domain.RunRequest{Spec: spec, Dir: outDir, Name: name})
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrEmptyCatalog):
		p.Warning("%s", pipeline.UserMessage(err))
		return &exitError{code: ExitEmptyCatalog, err: err}
	default:
		p.Error("%s", pipeline.UserMessage(err))
		var specErr *domain.InvalidSpecError
		if errors.As(err, &specErr) {
			return &exitError{code: ExitInvalidQuery, err: err}
		}
		return &exitError{code: ExitFailure, err: err}
	}

	if res.Catalog.Large {
		p.Warning("Large dataset: %d earthquakes. Downstream processing may take a while.", res.Catalog.Count)
	}
	p.Success("%d earthquakes written to %s (%d rows dropped)", res.Catalog.Count, res.Catalog.Path, res.Catalog.Dropped)
	if res.Published > 0 {
		p.Success("%d records published", res.Published)
	}
	return nil
}
