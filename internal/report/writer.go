package report

import (
	"io"

	"github.com/nao1215/contactscan/internal/model"
)

// Writer writes a batch of crawl results in some format.
type Writer interface {
	// Write outputs results in input order and returns the bytes written.
	Write(results []model.CrawlResult) (int, error)
}

// MultiWriter writes to several Writers in turn, stopping at the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write implements Writer.
func (m *MultiWriter) Write(results []model.CrawlResult) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(results)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// siteLabel is the name shown for a result.
func siteLabel(r model.CrawlResult) string {
	if r.URL != "" {
		return r.URL
	}
	return r.Seed
}
