package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/contactscan/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs a plain text report for terminals.
type SimpleWriter struct {
	baseWriter

	// showEmpty lists sites where nothing was found.
	showEmpty bool

	// verbose adds page counts and durations.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty includes sites with no emails in the listing.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose adds crawl statistics per site.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output), showEmpty: true}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write implements Writer.
func (w *SimpleWriter) Write(results []model.CrawlResult) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb)
	w.writeSites(&sb, results)
	w.writeSummary(&sb, model.Summarize(results))

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", ruleWidth) + "\n")
	sb.WriteString("                      CONTACTSCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", ruleWidth) + "\n\n")
}

func (w *SimpleWriter) writeSites(sb *strings.Builder, results []model.CrawlResult) {
	for _, r := range results {
		if !r.HasEmails() && !r.Failed() && !w.showEmpty {
			continue
		}

		switch {
		case r.Failed():
			fmt.Fprintf(sb, "[!] %s\n", siteLabel(r))
			fmt.Fprintf(sb, "    Error: %s\n", r.Error)
		case r.HasEmails():
			fmt.Fprintf(sb, "[+] %s\n", siteLabel(r))
		default:
			fmt.Fprintf(sb, "[-] %s\n", siteLabel(r))
			sb.WriteString("    No emails found\n")
		}

		for _, email := range r.Emails {
			fmt.Fprintf(sb, "    %s\n", email)
		}
		if w.verbose {
			fmt.Fprintf(sb, "    Pages: %d  Time: %s\n", r.PagesVisited, r.Duration().Round(time.Millisecond))
		}
		sb.WriteString("\n")
	}
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, s model.BatchSummary) {
	sb.WriteString(strings.Repeat("-", ruleWidth) + "\n")
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", ruleWidth) + "\n")
	fmt.Fprintf(sb, "  Sites:        %d\n", s.Total)
	fmt.Fprintf(sb, "  With emails:  %d\n", s.WithEmails)
	fmt.Fprintf(sb, "  Failed:       %d\n", s.Failed)
	fmt.Fprintf(sb, "  Emails found: %d\n", s.EmailsFound)
	sb.WriteString(strings.Repeat("=", ruleWidth) + "\n")
}
