package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/epeers/marketetl/internal/models"
	"github.com/epeers/marketetl/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeExtracts(t *testing.T, dir string) {
	t.Helper()

	var prices strings.Builder
	prices.WriteString("date,ticker,open,high,low,close,volume\n")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		c := 20 + float64(i)
		fmt.Fprintf(&prices, "%s,AAA,%.2f,%.2f,%.2f,%.2f,%d\n", start.AddDate(0, 0, i).Format("2006-01-02"), c, c+1, c-1, c, 500+i)
	}

	files := map[string]string{
		services.RawCompaniesFile: "Ticker,Name,Sector,Industry\nAAA,Alpha Corp,Technology,Software\n",
		services.RawPricesFile:    prices.String(),
		services.RawFundamentalsFile: "Ticker,Name,PER,ROE,EPS Growth YoY,Deuda/Patrimonio,Margen Neto,Dividend Yield,Market Cap\n" +
			"AAA,Alpha Corp,15,0.2,0.12,50,0.3,0.01,1000\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func TestTransformCommand(t *testing.T) {
	rawDir := t.TempDir()
	readyDir := filepath.Join(t.TempDir(), "ready")
	writeExtracts(t, rawDir)

	// transform never connects, the URL only has to be present
	t.Setenv("PG_URL", "postgres://unused@localhost:1/none")
	t.Setenv("RAW_DIR", rawDir)
	t.Setenv("READY_DIR", readyDir)
	t.Setenv("WATERMARK_SCOPE", "")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"transform", "--json"})
	require.NoError(t, rootCmd.Execute())

	var rep models.RunReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &rep))
	assert.Equal(t, 25, rep.PricesRead)
	assert.Equal(t, 25, rep.IndicatorsBuilt)
	assert.Zero(t, rep.Summaries, "transform loads nothing")
	assert.NotEmpty(t, rep.RunID)

	for _, name := range []string{
		services.ReadyCompaniesFile,
		services.ReadyPricesFile,
		services.ReadyFundamentalsFile,
		services.ReadyIndicatorsFile,
		services.ReadySummaryFile,
	} {
		_, err := os.Stat(filepath.Join(readyDir, name))
		assert.NoError(t, err, name)
	}
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	t.Setenv("PG_URL", "postgres://unused@localhost:1/none")
	t.Setenv("WATERMARK_SCOPE", "everything")

	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"transform"})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WATERMARK_SCOPE")
}
