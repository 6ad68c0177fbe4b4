package main

import (
	"os"

	"github.com/epeers/marketetl/cmd"
)

// @title Market ETL API
// @version 1.0
// @description Read API over the technical indicators and investment summaries produced by the market ETL pipeline.
// @BasePath /
func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
