package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/vzahanych/weather-report/internal/config"
	"github.com/vzahanych/weather-report/internal/report"
	"github.com/vzahanych/weather-report/pkg/telemetry"
	"go.uber.org/zap"
)

const fetchBanner = "Fetching weather data from free APIs...\n\n"

func newReportCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Fetch current weather once and print the combined report",
		Long: `Queries every enabled provider, prints one block per successful source and the
average temperature. Provider failures are logged and skipped; a run where every
provider fails still exits successfully with a "no data" report.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), config.GetConfig(), log, tele, cmd.OutOrStdout(), asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON instead of text")

	return cmd
}

func runReport(ctx context.Context, cfg *config.Config, logger *zap.Logger, tele *telemetry.Telemetry, out io.Writer, asJSON bool) error {
	p, err := buildPipeline(ctx, cfg, logger, tele)
	if err != nil {
		return err
	}
	defer p.Close()

	formatter := report.NewFormatter()

	if asJSON {
		agg := p.aggregator.Collect(ctx)
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(formatter.Document(agg)); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return nil
	}

	if _, err := io.WriteString(out, fetchBanner); err != nil {
		return err
	}
	agg := p.aggregator.Collect(ctx)
	_, err = io.WriteString(out, formatter.Format(agg))
	return err
}
