package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/samber/lo"

	"github.com/nao1215/contactscan/internal/model"
)

// MarkdownWriter outputs GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write implements Writer.
func (w *MarkdownWriter) Write(results []model.CrawlResult) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := model.Summarize(results)

	md.H1("Contact Scan Report")
	md.PlainText("")

	w.writeSummary(md, summary)
	w.writeResults(md, results)
	w.writeFailures(md, results)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by [contactscan](https://github.com/nao1215/contactscan)*")

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s model.BatchSummary) {
	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Sites", strconv.Itoa(s.Total)},
			{"Sites with emails", strconv.Itoa(s.WithEmails)},
			{"Failed sites", strconv.Itoa(s.Failed)},
			{"Emails found", strconv.Itoa(s.EmailsFound)},
		},
	})
	md.PlainText("")

	if s.Total > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Site Outcomes"),
			piechart.WithShowData(true),
		)
		empty := s.Total - s.WithEmails - s.Failed
		if s.WithEmails > 0 {
			chart.LabelAndIntValue("With emails", uint64(s.WithEmails))
		}
		if empty > 0 {
			chart.LabelAndIntValue("No emails", uint64(empty))
		}
		if s.Failed > 0 {
			chart.LabelAndIntValue("Failed", uint64(s.Failed))
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	switch {
	case s.Total == 0:
		md.Note("No sites were processed.")
	case s.Failed == s.Total:
		md.Caution("Every site failed to load. Check network access or proxy settings.")
	case s.Failed > 0:
		md.Warningf("%d of %d site(s) could not be crawled.", s.Failed, s.Total)
	case s.WithEmails == 0:
		md.Important("No email addresses were found.")
	default:
		md.Tip("All sites were crawled.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeResults(md *markdown.Markdown, results []model.CrawlResult) {
	md.H2("Results")
	md.PlainText("")

	if len(results) == 0 {
		md.PlainText("No results.")
		md.PlainText("")
		return
	}

	rows := lo.Map(results, func(r model.CrawlResult, _ int) []string {
		emails := "-"
		if r.HasEmails() {
			emails = strings.Join(r.Emails, "<br>")
		}
		return []string{
			"`" + siteLabel(r) + "`",
			emails,
			strconv.Itoa(r.PagesVisited),
			statusText(r),
		}
	})

	md.Table(markdown.TableSet{
		Header: []string{"Site", "Emails", "Pages", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, results []model.CrawlResult) {
	failed := lo.Filter(results, func(r model.CrawlResult, _ int) bool {
		return r.Failed()
	})
	if len(failed) == 0 {
		return
	}

	md.H2("Failures")
	md.PlainText("")
	for _, r := range failed {
		md.Details(siteLabel(r), r.Error)
	}
	md.PlainText("")
}

func statusText(r model.CrawlResult) string {
	switch {
	case r.Failed():
		return "❌ Failed"
	case r.HasEmails():
		return "✅ Found"
	default:
		return "➖ None"
	}
}
