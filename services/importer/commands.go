package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/02loveslollipop/snow-cannon-viewer/services/api/db"
	"github.com/02loveslollipop/snow-cannon-viewer/services/importer/internal/config"
	"github.com/02loveslollipop/snow-cannon-viewer/services/importer/internal/convert"
	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/geo"
	"github.com/02loveslollipop/snow-cannon-viewer/services/internal/log"
)

// importer carries the settings shared by every subcommand.
type importer struct {
	cfg    config.Config
	logger *zap.SugaredLogger
}

func newRootCmd(cfg config.Config) *cobra.Command {
	imp := &importer{cfg: cfg, logger: log.Named("importer")}

	root := &cobra.Command{
		Use:           "importer",
		Short:         "Load snow-cannon records and measurements into the store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&imp.cfg.DryRun, "dry-run", cfg.DryRun, "parse and report without writing")
	root.PersistentFlags().IntVar(&imp.cfg.BatchSize, "batch-size", cfg.BatchSize, "records per write batch")

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import cannons or measurements",
	}
	importCmd.AddCommand(imp.importCannonsCmd(), imp.importMeasurementsCmd())

	root.AddCommand(imp.schemaCmd(), importCmd, imp.exportCSVCmd())
	return root
}

func (imp *importer) openRepo(ctx context.Context) (db.Repository, error) {
	if err := imp.cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	repo, err := db.Open(ctx, imp.cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		repo.Close()
		return nil, err
	}
	return repo, nil
}

func (imp *importer) schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the cannon and measurement tables when missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := imp.openRepo(cmd.Context())
			if err != nil {
				return err
			}
			defer repo.Close()
			imp.logger.Info("schema is up to date")
			return nil
		},
	}
}

func (imp *importer) importCannonsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cannons <layer.geojson>",
		Short: "Upsert cannons from the GeoJSON map layer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return imp.importCannons(cmd.Context(), args[0])
		},
	}
}

func (imp *importer) importCannons(ctx context.Context, path string) error {
	fc, err := geo.FileSource{Path: path}.Load(ctx)
	if err != nil {
		return err
	}

	cannons, skipped := convert.CannonsFromCollection(fc)
	for _, e := range skipped {
		imp.logger.Warnw("skipping feature", "error", e)
	}
	imp.logger.Infof("parsed %d cannons from %d features (dry-run=%v)", len(cannons), len(fc.Features), imp.cfg.DryRun)

	if imp.cfg.DryRun {
		for _, c := range cannons {
			imp.logger.Infof("dry-run: would upsert cannon=%d secteur=%d type=%s piste=%q", c.ID, c.Sector, c.Type, c.PisteName)
		}
		return nil
	}

	repo, err := imp.openRepo(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	for _, batch := range convert.Chunk(cannons, imp.cfg.BatchSize) {
		if err := repo.UpsertCannons(ctx, batch); err != nil {
			return fmt.Errorf("upsert cannons: %w", err)
		}
	}

	imp.logger.Infof("upserted %d cannons", len(cannons))
	return nil
}

func (imp *importer) importMeasurementsCmd() *cobra.Command {
	var delimiter string

	cmd := &cobra.Command{
		Use:   "measurements <export.csv>",
		Short: "Insert measurements from a CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comma, err := parseDelimiter(delimiter)
			if err != nil {
				return err
			}
			return imp.importMeasurements(cmd.Context(), args[0], comma)
		},
	}
	cmd.Flags().StringVarP(&delimiter, "delimiter", "d", ",", "field separator (',' ';' or 'tab')")
	return cmd
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case ",", ";", "|":
		return rune(s[0]), nil
	case "tab", `\t`, "\t":
		return '\t', nil
	}
	return 0, fmt.Errorf("unsupported delimiter %q", s)
}

func (imp *importer) importMeasurements(ctx context.Context, path string, comma rune) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open measurements %s: %w", path, err)
	}
	defer f.Close()

	records, skipped, err := convert.ParseMeasurements(f, comma)
	if err != nil {
		return fmt.Errorf("parse measurements %s: %w", path, err)
	}
	for _, e := range skipped {
		imp.logger.Warnw("skipping row", "error", e)
	}

	pending := convert.DedupeMeasurements(records)
	if len(pending) == 0 {
		imp.logger.Infof("no measurements to insert from %s", path)
		return nil
	}
	imp.logger.Infof("prepared %d measurements (dry-run=%v)", len(pending), imp.cfg.DryRun)

	if imp.cfg.DryRun {
		for _, m := range pending {
			imp.logger.Infof("dry-run: would insert cannon=%d ts=%s conso=%.3f", m.CannonID, m.MeasuredAt.Format(time.RFC3339), m.ConsumptionM3)
		}
		return nil
	}

	repo, err := imp.openRepo(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	for _, batch := range convert.Chunk(pending, imp.cfg.BatchSize) {
		if err := repo.InsertMeasurements(ctx, batch); err != nil {
			return fmt.Errorf("insert measurements: %w", err)
		}
	}

	imp.logger.Infof("inserted %d measurements", len(pending))
	return nil
}

func (imp *importer) exportCSVCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export-csv <layer.geojson>",
		Short: "Flatten a GeoJSON layer into CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return imp.exportCSV(args[0], output, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, '-' for stdout (default ./out/<name>.csv)")
	return cmd
}

func (imp *importer) exportCSV(input, output string, stdout io.Writer) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read geojson %s: %w", input, err)
	}

	if output == "-" {
		_, err := convert.GeoJSONToCSV(data, stdout)
		return err
	}
	if output == "" {
		base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		output = filepath.Join("out", base+".csv")
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return err
	}

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	rows, err := convert.GeoJSONToCSV(data, f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	imp.logger.Infof("CSV created: %s (%d rows)", output, rows)
	return nil
}
