// Package cmd wires the marketetl command line.
package cmd

import (
	"github.com/epeers/marketetl/config"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	verbose bool

	// cfg is populated by the root PersistentPreRunE before any subcommand runs
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "marketetl",
	Short: "Market data ETL: clean extracts, derive indicators, load PostgreSQL",
	Long: `marketetl turns raw market extracts into technical indicators and a
BUY/SELL/HOLD investment summary, and loads everything into PostgreSQL.

Commands:
    extract     AlphaVantage -> raw extracts
    transform   raw extracts -> ready files (no database writes)
    load        ready files -> database, incrementally
    run         transform then load
    summarize   rebuild the summary from what is already in the database
    migrate     create missing tables
    serve       read API, admin endpoints and the optional nightly schedule
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging, overrides LOG_LEVEL")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(serveCmd)
}

func initConfig() error {
	c, err := config.Load()
	if err != nil {
		return err
	}
	cfg = c

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(cfg.LogLevel)
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
	return nil
}
