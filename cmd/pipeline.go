package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/epeers/marketetl/internal/models"
	"github.com/epeers/marketetl/internal/services"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var printJSON bool

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Clean the raw extracts and write the ready files",
	Long: `Reads the company, price and fundamentals extracts from RAW_DIR, derives the
technical indicators and the investment summary, and writes five ready files to
READY_DIR. The database is not touched.`,
	RunE: runTransform,
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the ready files into PostgreSQL",
	Long: `Loads the ready files from READY_DIR. Prices and indicators are filtered by the
watermark already in the database (WATERMARK_SCOPE), so reruns only add new dates.`,
	RunE: pipelineCommand(func(ctx context.Context, p *services.PipelineService) (*models.RunReport, error) {
		return p.Load(ctx)
	}),
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Transform then load",
	RunE: pipelineCommand(func(ctx context.Context, p *services.PipelineService) (*models.RunReport, error) {
		return p.Run(ctx)
	}),
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Rebuild the investment summary from the database",
	RunE: pipelineCommand(func(ctx context.Context, p *services.PipelineService) (*models.RunReport, error) {
		return p.Summarize(ctx)
	}),
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create missing tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		a.Close()
		log.Info("Schema is up to date")
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{transformCmd, loadCmd, runCmd, summarizeCmd} {
		c.Flags().BoolVar(&printJSON, "json", false, "print the run report as JSON")
	}
}

// signalContext is cancelled on SIGINT or SIGTERM so a run stops between steps
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func runTransform(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	p, err := newPipeline(cfg, services.Stores{}, newMetrics())
	if err != nil {
		return err
	}
	rep, err := p.Transform(ctx)
	return report(cmd, rep, err)
}

func pipelineCommand(step func(context.Context, *services.PipelineService) (*models.RunReport, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		rep, err := step(ctx, a.pipeline)
		return report(cmd, rep, err)
	}
}

// report logs the outcome of a run and optionally prints the full report
func report(cmd *cobra.Command, rep *models.RunReport, runErr error) error {
	if rep != nil {
		log.WithFields(log.Fields{
			"run_id":            rep.RunID,
			"duration_ms":       rep.DurationMs,
			"companies":         rep.Companies,
			"prices_read":       rep.PricesRead,
			"prices_loaded":     rep.PricesLoaded,
			"indicators_built":  rep.IndicatorsBuilt,
			"indicators_loaded": rep.IndicatorsLoaded,
			"summaries":         rep.Summaries,
			"malformed":         rep.Malformed,
			"failed":            len(rep.Failed),
			"warnings":          len(rep.Warnings),
		}).Info("Run finished")

		for _, f := range rep.Failed {
			log.Warnf("%s: %s", f.Ticker, f.Reason)
		}

		if printJSON {
			out, err := json.MarshalIndent(rep, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
		}
	}
	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}
	return nil
}
