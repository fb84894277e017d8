package model

import (
	"errors"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"
)

// Default crawl job values.
const (
	// DefaultMaxSubpages is the number of non-seed pages visited per site.
	DefaultMaxSubpages = 10

	// DefaultMaxRetries is the number of additional attempts after a failed fetch.
	DefaultMaxRetries = 2

	// DefaultTimeout is the connection timeout for a single request.
	DefaultTimeout = 10 * time.Second

	// DefaultRenderWait is how long the network must stay idle before a
	// rendered page is considered settled.
	DefaultRenderWait = 10 * time.Second

	// DefaultRenderTimeout is the hard cap on rendering a single page.
	DefaultRenderTimeout = 60 * time.Second

	// DefaultDelayMin and DefaultDelayMax bound the politeness delay
	// before each subpage fetch.
	DefaultDelayMin = 1 * time.Second
	DefaultDelayMax = 3 * time.Second

	// DefaultUserAgent is a desktop browser User-Agent. Many small business
	// sites serve a stripped page to unknown agents.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// ErrEmptySeed is returned when a job is created without a seed URL.
var ErrEmptySeed = errors.New("seed URL is empty")

// DelayRange is the inclusive range a politeness delay is drawn from.
type DelayRange struct {
	Min time.Duration `json:"min"`
	Max time.Duration `json:"max"`
}

// Draw returns a duration drawn uniformly from the range.
// A range with Max <= Min always returns Min.
func (d DelayRange) Draw() time.Duration {
	if d.Max <= d.Min {
		return max(d.Min, 0)
	}
	return d.Min + rand.N(d.Max-d.Min+1) //nolint:gosec // politeness jitter, not security
}

// CrawlJob holds everything needed to crawl one site.
// A job is created by the dispatcher per input URL and is not modified
// once the crawl starts.
type CrawlJob struct {
	// Seed is the site address as given by the caller (scheme optional).
	Seed string `json:"seed"`

	// MaxSubpages limits the number of non-seed pages visited.
	MaxSubpages int `json:"max_subpages"`

	// MaxRetries is the number of retries after the first failed attempt.
	MaxRetries int `json:"max_retries"`

	// Timeout is the per-request connection timeout.
	Timeout time.Duration `json:"timeout"`

	// RenderWait is the idle period a rendering backend waits for.
	RenderWait time.Duration `json:"render_wait"`

	// RenderTimeout is the hard cap on rendering a single page.
	RenderTimeout time.Duration `json:"render_timeout"`

	// Delay is the politeness delay range before each subpage fetch.
	Delay DelayRange `json:"delay"`

	// UserAgent is sent with every request.
	UserAgent string `json:"user_agent"`

	// Headers are extra request headers for this site.
	Headers http.Header `json:"-"`

	// RespectRobots skips subpages disallowed by the site's robots.txt.
	RespectRobots bool `json:"respect_robots"`
}

// NewCrawlJob creates a job for seed with default settings.
func NewCrawlJob(seed string) CrawlJob {
	return CrawlJob{
		Seed:          seed,
		MaxSubpages:   DefaultMaxSubpages,
		MaxRetries:    DefaultMaxRetries,
		Timeout:       DefaultTimeout,
		RenderWait:    DefaultRenderWait,
		RenderTimeout: DefaultRenderTimeout,
		Delay:         DelayRange{Min: DefaultDelayMin, Max: DefaultDelayMax},
		UserAgent:     DefaultUserAgent,
		Headers:       make(http.Header),
	}
}

// Validate checks the job before a crawl starts.
func (j CrawlJob) Validate() error {
	if strings.TrimSpace(j.Seed) == "" {
		return ErrEmptySeed
	}
	return nil
}

// NormalizeSeed returns the seed with surrounding whitespace removed and
// "https://" prepended when no http(s) scheme is present.
func NormalizeSeed(seed string) string {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return ""
	}
	lower := strings.ToLower(seed)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return seed
	}
	return "https://" + seed
}
