package pipeline

import (
	"context"
	"fmt"

	"github.com/nao1215/contactscan/internal/model"
	"github.com/nao1215/contactscan/internal/sheet"
)

// ProcessTable crawls the URL column of t and appends an Emails column.
// Rows with an empty or "nan" URL are not crawled and get an empty cell.
// The pool is sized from the row count, blank rows included. The
// returned results cover only the crawled rows, in row order.
func (d *Dispatcher) ProcessTable(ctx context.Context, t *sheet.Table) ([]model.CrawlResult, error) {
	col, err := sheet.FindURLColumn(t.Headers)
	if err != nil {
		return nil, err
	}

	t.ClearMissing(col)
	urls := t.URLs(col)
	seeds := make([]string, 0, len(urls))
	rowOf := make([]int, 0, len(urls))
	for i, u := range urls {
		if u == "" {
			continue
		}
		seeds = append(seeds, u)
		rowOf = append(rowOf, i)
	}

	d.logger.Info("processing table",
		"rows", t.Len(),
		"url_column", t.Headers[col],
		"urls", len(seeds),
	)

	results, runErr := d.run(ctx, seeds, d.WorkerCount(t.Len()))

	cells := make([]string, len(urls))
	for i, r := range results {
		cells[rowOf[i]] = r.JoinedEmails(sheet.EmailSeparator)
	}
	if err := t.AppendColumn(sheet.EmailsColumn, cells); err != nil {
		return results, fmt.Errorf("failed to append emails: %w", err)
	}

	return results, runErr
}
