package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/contactscan/internal/model"
)

// JSONWriter outputs a JSONReport.
type JSONWriter struct {
	baseWriter

	version string
	indent  string
	now     func() time.Time
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint indents the output by two spaces.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = "  "
	}
}

// WithVersion records the tool version in the report.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output), now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport is the document written by JSONWriter.
type JSONReport struct {
	Version     string              `json:"version,omitempty"`
	GeneratedAt time.Time           `json:"generated_at"`
	Summary     model.BatchSummary  `json:"summary"`
	Results     []model.CrawlResult `json:"results"`
}

// Write implements Writer.
func (w *JSONWriter) Write(results []model.CrawlResult) (int, error) {
	if results == nil {
		results = []model.CrawlResult{}
	}
	doc := JSONReport{
		Version:     w.version,
		GeneratedAt: w.now().UTC(),
		Summary:     model.Summarize(results),
		Results:     results,
	}

	var (
		data []byte
		err  error
	)
	if w.indent != "" {
		data, err = json.MarshalIndent(doc, "", w.indent)
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return 0, err
	}

	return w.output.Write(append(data, '\n'))
}
