package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	clog "github.com/nao1215/contactscan/internal/log"
)

// NewRootCmd creates the root command for contactscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contactscan",
		Short: "Find contact email addresses on websites",
		Long: `contactscan discovers contact email addresses for a batch of websites.

For every site it fetches the homepage, follows a limited number of
contact-like subpages (contact, about, team, impressum ...), and extracts
addresses from mailto links, visible text and simple script obfuscation.
Results can be printed as text, JSON or Markdown, merged back into a CSV
or Excel file, or served through a small upload web page.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON lines")
	cmd.PersistentFlags().Bool("log-emails", false, "Show email addresses unmasked in logs")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewSheetCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger builds the logger selected by the global flags.
func newLogger(cmd *cobra.Command, w io.Writer) *slog.Logger {
	flags := cmd.Flags()
	verbose, _ := flags.GetBool("verbose")
	logJSON, _ := flags.GetBool("log-json")
	logEmails, _ := flags.GetBool("log-emails")

	return clog.New(w, clog.Options{
		Verbose:    verbose,
		JSON:       logJSON,
		ShowEmails: logEmails,
	})
}
