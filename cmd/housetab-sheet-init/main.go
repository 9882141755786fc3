// Command housetab-sheet-init verifies spreadsheet access and writes the
// header row so the mirror worker can append expenses below it. Run it once
// when pointing a deployment at a fresh spreadsheet.
package main

import (
	"context"
	"os"
	"time"

	"housetab/internal/books/sheets"
	"housetab/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	cfg := cli.LoadAndValidateConfig(logger)

	if !cfg.MirrorEnabled() {
		logger.Error("GOOGLE_SPREADSHEET_ID is not set")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	credentials, err := sheets.LoadCredentials(cfg.GoogleCredentialsJSON, cfg.GoogleCredentialsFile)
	if err != nil {
		logger.Error("Failed to load Google credentials", "error", err)
		os.Exit(1)
	}

	client, err := sheets.NewClient(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, credentials)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}

	if err := client.EnsureHeader(ctx); err != nil {
		logger.Error("Failed to write header row", "error", err)
		os.Exit(1)
	}

	logger.Info("Sheet ready", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
}
