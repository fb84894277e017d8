package model

import (
	"strings"
	"time"
)

// CrawlResult holds the emails found for one input site.
// One result exists per job and keeps the job's position in the batch,
// even when the crawl failed entirely.
type CrawlResult struct {
	// Seed is the input value exactly as given by the caller.
	Seed string `json:"seed"`

	// URL is the normalized seed URL that was crawled.
	URL string `json:"url"`

	// Emails are the validated, lowercased addresses in lexical order.
	Emails []string `json:"emails"`

	// PagesVisited counts every page fetched, the seed included.
	PagesVisited int `json:"pages_visited"`

	// Error describes why the crawl ended early, if it did.
	Error string `json:"error,omitempty"`

	// StartedAt and FinishedAt bound the crawl.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewEmptyResult returns a result with no emails for seed.
func NewEmptyResult(seed string) CrawlResult {
	now := time.Now()
	return CrawlResult{
		Seed:       seed,
		URL:        NormalizeSeed(seed),
		Emails:     []string{},
		StartedAt:  now,
		FinishedAt: now,
	}
}

// HasEmails reports whether any address was found.
func (r CrawlResult) HasEmails() bool {
	return len(r.Emails) > 0
}

// Failed reports whether the crawl recorded an error.
func (r CrawlResult) Failed() bool {
	return r.Error != ""
}

// Duration returns how long the crawl took.
func (r CrawlResult) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// JoinedEmails returns the addresses joined by sep, as written into a
// spreadsheet cell.
func (r CrawlResult) JoinedEmails(sep string) string {
	return strings.Join(r.Emails, sep)
}

// BatchSummary aggregates a batch of results.
type BatchSummary struct {
	Total       int `json:"total"`
	WithEmails  int `json:"with_emails"`
	Failed      int `json:"failed"`
	EmailsFound int `json:"emails_found"`
}

// Summarize computes a BatchSummary over results.
func Summarize(results []CrawlResult) BatchSummary {
	s := BatchSummary{Total: len(results)}
	for _, r := range results {
		if r.HasEmails() {
			s.WithEmails++
		}
		if r.Failed() {
			s.Failed++
		}
		s.EmailsFound += len(r.Emails)
	}
	return s
}
