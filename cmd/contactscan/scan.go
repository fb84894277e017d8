package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/contactscan/internal/config"
	"github.com/nao1215/contactscan/internal/model"
	"github.com/nao1215/contactscan/internal/report"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [site...]",
		Short: "Find contact emails on one or more websites",
		Long: `Scan crawls each site's homepage and up to --max-subpages contact-like
subpages, then reports the validated email addresses per site.

A site may be given with or without scheme; "https://" is assumed.

Examples:
  # Scan a single site
  contactscan scan acme.io

  # Scan several sites, 8 at a time
  contactscan scan -w 8 acme.io widgets.example.org shop.example.net

  # Read sites from a file (one per line, # starts a comment)
  contactscan scan --list sites.txt

  # Skip headless Chrome and fetch raw HTML only
  contactscan scan --render=false acme.io

  # Write a Markdown report to a file
  contactscan scan --markdown -o reports/contacts.md acme.io

Configuration file (.contactscan) example:
  defaults:
    maxSubpages: 5
  sites:
    acme.io:
      cookie: "consent=yes"
      headers:
        Accept-Language: "en"`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	addCrawlFlags(cmd)
	addHistoryFlags(cmd)

	cmd.Flags().StringP("list", "l", "",
		"Read sites from a file, one per line")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildScanConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	return runScan(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// buildScanConfig creates a Config from the scan command's flags and args.
func buildScanConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := buildCrawlConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := readHistoryFlags(cmd, cfg); err != nil {
		return nil, err
	}

	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return nil, err
	}

	listFile, err := cmd.Flags().GetString("list")
	if err != nil {
		return nil, err
	}

	cfg.Targets = append(cfg.Targets, args...)
	if listFile != "" {
		targets, err := readTargetList(listFile)
		if err != nil {
			return nil, err
		}
		cfg.Targets = append(cfg.Targets, targets...)
	}

	return cfg, nil
}

// readTargetList reads one site per line. Blank lines and lines starting
// with '#' are skipped.
func readTargetList(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided list path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open site list: %w", err)
	}
	defer f.Close()

	var targets []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read site list: %w", err)
	}
	return targets, nil
}

// runScan crawls cfg.Targets and writes the report.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	logger.Info("starting scan",
		"targets", len(cfg.Targets),
		"render", cfg.Render,
		"maxSubpages", cfg.MaxSubpages,
		"saveToDB", cfg.SaveToDB,
	)

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

	fmt.Fprintf(stderr, "Scanning %d site(s)...\n", len(cfg.Targets))
	startTime := time.Now()

	results := make([]model.CrawlResult, len(cfg.Targets))
	var mu sync.Mutex
	done := 0
	runErr := env.dispatcher.RunWithCallback(ctx, cfg.Targets, func(r model.CrawlResult, index int) {
		mu.Lock()
		defer mu.Unlock()

		results[index] = r
		done++
		fmt.Fprintf(stderr, "[%d/%d] %s: %s\n", done, len(cfg.Targets), r.Seed, progressText(r))
	})

	fmt.Fprintf(stderr, "Scan completed in %s\n\n", time.Since(startTime).Round(time.Millisecond))

	if err := outputReport(cfg, results, stdout); err != nil {
		return err
	}

	if db != nil {
		runID, err := db.SaveRun(ctx, results)
		if err != nil {
			logger.Error("failed to save results", "error", err)
		} else {
			logger.Info("results saved to database", "run", runID)
		}
	}

	if errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("scan interrupted: %w", runErr)
	}
	return runErr
}

func progressText(r model.CrawlResult) string {
	switch {
	case r.Failed():
		return "failed (" + r.Error + ")"
	case r.HasEmails():
		return fmt.Sprintf("%d email(s)", len(r.Emails))
	default:
		return "no emails"
	}
}

// outputReport writes results in the requested format. With --output the
// report goes to the file and a plain text summary is still printed.
func outputReport(cfg *config.Config, results []model.CrawlResult, stdout io.Writer) error {
	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports list harvested addresses, so keep them owner-readable only.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	if cfg.ReportFile != "" && (cfg.JSONReport || cfg.MarkdownReport) {
		writer = report.NewMultiWriter(writer, report.NewSimpleWriter(stdout, report.WithShowEmpty(false)))
	}

	if _, err := writer.Write(results); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
