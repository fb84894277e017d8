package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/nao1215/contactscan/internal/config"
	"github.com/nao1215/contactscan/internal/database"
	"github.com/nao1215/contactscan/internal/model"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [site]",
		Short: "Show saved results and changes between runs",
		Long: `History reads the result database written by 'scan', 'sheet' and 'serve'.

Without a site it lists the saved runs. With a site it lists that site's
results and compares the two most recent ones, showing which addresses
appeared and which disappeared.

Examples:
  # List recent runs
  contactscan history

  # List every site in the database
  contactscan history --sites

  # Show results for a site and what changed since the previous run
  contactscan history acme.io

  # Same, as JSON
  contactscan history --json acme.io

  # Print only the addresses of the most recent result, one per line
  contactscan history --latest acme.io`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().Bool("sites", false, "List all sites in the database")
	cmd.Flags().Bool("latest", false, "Print the addresses of the site's most recent result")
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of entries to show (0 = all)")
	cmd.Flags().BoolP("json", "j", false, "Output in JSON format")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the history database")

	return cmd
}

// siteChanges is the difference between a site's two latest results.
type siteChanges struct {
	Site     string             `json:"site"`
	Latest   *model.CrawlResult `json:"latest,omitempty"`
	Previous *model.CrawlResult `json:"previous,omitempty"`
	Added    []string           `json:"added"`
	Removed  []string           `json:"removed"`
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	listSites, err := flags.GetBool("sites")
	if err != nil {
		return err
	}
	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}
	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	latest, err := flags.GetBool("latest")
	if err != nil {
		return err
	}
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}

	if listSites && len(args) > 0 {
		return errors.New("--sites does not take a site argument")
	}
	if latest && len(args) == 0 {
		return errors.New("--latest requires a site argument")
	}

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("no history found (run 'contactscan scan' first): %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	switch {
	case listSites:
		return printSites(ctx, out, db, jsonOutput)
	case latest:
		return printLatest(ctx, out, db, args[0], jsonOutput)
	case len(args) == 0:
		return printRuns(ctx, out, db, limit, jsonOutput)
	default:
		return printSiteHistory(ctx, out, db, args[0], limit, jsonOutput)
	}
}

func printSites(ctx context.Context, out io.Writer, db *database.ResultDB, jsonOutput bool) error {
	sites, err := db.ListSites(ctx)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(out, lo.Ternary(sites == nil, []string{}, sites))
	}

	if len(sites) == 0 {
		fmt.Fprintln(out, "No sites found in the database.")
		return nil
	}
	fmt.Fprintf(out, "Sites (%d):\n\n", len(sites))
	for _, s := range sites {
		fmt.Fprintf(out, "  %s\n", s)
	}
	return nil
}

func printLatest(ctx context.Context, out io.Writer, db *database.ResultDB, site string, jsonOutput bool) error {
	rec, err := db.GetLatestResult(ctx, site)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("no results for %s", site)
	}
	if jsonOutput {
		return writeJSON(out, rec.Result)
	}
	for _, e := range rec.Result.Emails {
		fmt.Fprintln(out, e)
	}
	return nil
}

func printRuns(ctx context.Context, out io.Writer, db *database.ResultDB, limit int, jsonOutput bool) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(out, lo.Ternary(runs == nil, []database.Run{}, runs))
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs found in the database.")
		return nil
	}
	fmt.Fprintf(out, "Runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-36s  %-20s  %6s  %6s  %6s\n", "ID", "Started", "Sites", "Found", "Emails")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 82))
	for _, r := range runs {
		fmt.Fprintf(out, "  %-36s  %-20s  %6d  %6d  %6d\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Total, r.WithEmails, r.EmailsFound)
	}
	return nil
}

func printSiteHistory(ctx context.Context, out io.Writer, db *database.ResultDB, site string, limit int, jsonOutput bool) error {
	records, err := db.GetHistory(ctx, site, limit)
	if err != nil {
		return err
	}
	changes := compareLatest(model.NormalizeSeed(site), records)

	if jsonOutput {
		return writeJSON(out, changes)
	}

	if len(records) == 0 {
		fmt.Fprintf(out, "No history found for %s\n", changes.Site)
		return nil
	}

	fmt.Fprintf(out, "History for %s (%d results):\n\n", changes.Site, len(records))
	for _, rec := range records {
		r := rec.Result
		status := fmt.Sprintf("%d email(s)", len(r.Emails))
		if r.Failed() {
			status = "failed: " + r.Error
		}
		fmt.Fprintf(out, "  %s  %s  %s\n", r.StartedAt.Local().Format(time.DateTime), rec.RunID, status)
	}

	if changes.Previous == nil {
		return nil
	}
	fmt.Fprintln(out)
	if len(changes.Added) == 0 && len(changes.Removed) == 0 {
		fmt.Fprintln(out, "No changes since the previous run.")
		return nil
	}
	for _, e := range changes.Added {
		fmt.Fprintf(out, "  + %s\n", e)
	}
	for _, e := range changes.Removed {
		fmt.Fprintf(out, "  - %s\n", e)
	}
	return nil
}

// compareLatest diffs the first two records, which are newest first.
func compareLatest(site string, records []database.SiteRecord) siteChanges {
	changes := siteChanges{
		Site:    site,
		Added:   []string{},
		Removed: []string{},
	}
	if len(records) == 0 {
		return changes
	}

	latest := records[0].Result
	changes.Latest = &latest
	if len(records) < 2 {
		changes.Added = append(changes.Added, latest.Emails...)
		return changes
	}

	previous := records[1].Result
	changes.Previous = &previous
	changes.Added, changes.Removed = lo.Difference(latest.Emails, previous.Emails)
	return changes
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
