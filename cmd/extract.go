package cmd

import (
	"errors"
	"fmt"

	"github.com/epeers/marketetl/internal/alphavantage"
	"github.com/epeers/marketetl/internal/services"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var outputSize string

var extractCmd = &cobra.Command{
	Use:   "extract [TICKER...]",
	Short: "Refresh the raw extracts from AlphaVantage",
	Long: `Fetches company profile, fundamental ratios and daily bars for each ticker and
replaces the three raw extracts in RAW_DIR. Without arguments the tickers of the
current raw company listing are refreshed. Requires AV_KEY; requests are paced at
AV_REQUESTS_PER_MINUTE.

Examples:
  marketetl extract                      # refresh every listed ticker
  marketetl extract AAPL MSFT --size full`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&outputSize, "size", "compact", "history per ticker: compact (100 days) or full")
}

func runExtract(cmd *cobra.Command, args []string) error {
	if cfg.AVKey == "" {
		return errors.New("AV_KEY environment variable is required for extract")
	}
	if outputSize != "compact" && outputSize != "full" {
		return fmt.Errorf("--size must be compact or full, got %q", outputSize)
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	client := alphavantage.NewClient(cfg.AVKey, alphavantage.WithRequestsPerMinute(cfg.AVPerMinute))
	rep, err := services.NewExtractService(client, cfg.RawDir).Extract(ctx, args, outputSize)
	if rep != nil {
		for _, f := range rep.Failed {
			log.Warnf("%s: %s", f.Ticker, f.Reason)
		}
	}
	if err != nil {
		return fmt.Errorf("extract failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "extracted %d of %d tickers (%d bars) into %s\n", rep.Companies, rep.Tickers, rep.Prices, cfg.RawDir)
	return nil
}
