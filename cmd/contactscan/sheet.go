package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/contactscan/internal/config"
	"github.com/nao1215/contactscan/internal/model"
	"github.com/nao1215/contactscan/internal/sheet"
)

// NewSheetCmd creates the sheet command.
func NewSheetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheet <file>",
		Short: "Add an Emails column to a CSV or Excel file of websites",
		Long: `Sheet reads a .csv or .xlsx file, finds the column holding websites (the
first header containing "website" or "url"), crawls every row's site and
writes the file back with an Emails column appended.

Rows with an empty URL are left alone. Several addresses in one cell are
separated by ", ".

Examples:
  # Writes leads_emails.xlsx next to the input
  contactscan sheet leads.xlsx

  # Choose the output file
  contactscan sheet leads.csv -o leads-with-emails.csv

  # Overwrite the input file
  contactscan sheet --in-place leads.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: runSheetCmd,
	}

	addCrawlFlags(cmd)
	addHistoryFlags(cmd)

	cmd.Flags().StringP("output", "o", "",
		"Output file (default: <name>_emails.<ext> next to the input)")
	cmd.Flags().Bool("in-place", false,
		"Overwrite the input file")

	return cmd
}

// runSheetCmd executes the sheet command.
func runSheetCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildCrawlConfig(cmd)
	if err != nil {
		return err
	}
	if err := readHistoryFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.ValidateSettings(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	input := args[0]
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	inPlace, err := cmd.Flags().GetBool("in-place")
	if err != nil {
		return err
	}
	switch {
	case inPlace && output != "":
		return errors.New("--in-place and --output are mutually exclusive")
	case inPlace:
		output = input
	case output == "":
		output = defaultSheetOutput(input)
	}

	logger := newLogger(cmd, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	return runSheet(ctx, cfg, logger, input, output, cmd.ErrOrStderr())
}

// defaultSheetOutput returns "<name>_emails<ext>" in the input's directory.
func defaultSheetOutput(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_emails" + ext
}

// runSheet processes input and writes the result to output.
func runSheet(ctx context.Context, cfg *config.Config, logger *slog.Logger, input, output string, stderr io.Writer) error {
	if _, err := sheet.FormatOf(output); err != nil {
		return err
	}

	f, err := os.Open(input) //nolint:gosec // user-provided input path is intentional
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	table, err := sheet.Read(input, f)
	_ = f.Close()
	if err != nil {
		return err
	}

	col, err := sheet.FindURLColumn(table.Headers)
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}
	cfg.Targets = table.URLs(col)

	db, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	env, err := newCrawlEnv(cfg, logger)
	if err != nil {
		return err
	}
	defer env.Close()

	fmt.Fprintf(stderr, "Processing %d row(s) from %s (URL column %q)...\n",
		table.Len(), input, table.Headers[col])
	startTime := time.Now()

	results, runErr := env.dispatcher.ProcessTable(ctx, table)
	if runErr != nil && ctx.Err() == nil {
		return runErr
	}

	var buf bytes.Buffer
	if err := sheet.Write(output, &buf, table); err != nil {
		return err
	}
	if err := os.WriteFile(output, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	summary := model.Summarize(results)
	fmt.Fprintf(stderr, "Wrote %s in %s: %d of %d site(s) with emails, %d failed\n",
		output, time.Since(startTime).Round(time.Millisecond),
		summary.WithEmails, summary.Total, summary.Failed)

	if db != nil && len(results) > 0 {
		if runID, err := db.SaveRun(ctx, results); err != nil {
			logger.Error("failed to save results", "error", err)
		} else {
			logger.Info("results saved to database", "run", runID)
		}
	}

	return runErr
}
