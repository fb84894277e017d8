package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/contactscan/internal/crawler"
	"github.com/nao1215/contactscan/internal/fetch"
	"github.com/nao1215/contactscan/internal/model"
)

// Browser opens per-job rendering sessions. fetch.RodBrowser implements it.
type Browser interface {
	NewSession(s fetch.SessionSettings) (fetch.Session, error)
}

// SiteFactory builds a Spider per seed. Every call gets its own job,
// fetcher, robots cache and, with a Browser, its own browser session.
type SiteFactory struct {
	jobFor      func(seed string) model.CrawlJob
	browser     Browser
	proxy       string
	maxBodySize int64
	backoff     func(attempt int) time.Duration
	delay       func() time.Duration
	logger      *slog.Logger
}

// SiteOption configures a SiteFactory.
type SiteOption func(*SiteFactory)

// WithBrowser renders pages through a session of browser opened per job.
// Without it each job fetches over plain HTTP.
func WithBrowser(browser Browser) SiteOption {
	return func(f *SiteFactory) {
		f.browser = browser
	}
}

// WithProxyAddress routes per-job HTTP fetches, robots.txt included,
// through a SOCKS5 proxy.
func WithProxyAddress(address string) SiteOption {
	return func(f *SiteFactory) {
		f.proxy = address
	}
}

// WithMaxBodySize limits response bodies read by per-job HTTP renderers.
func WithMaxBodySize(n int64) SiteOption {
	return func(f *SiteFactory) {
		f.maxBodySize = n
	}
}

// WithRetryBackoff overrides the pause between fetch retries.
func WithRetryBackoff(fn func(attempt int) time.Duration) SiteOption {
	return func(f *SiteFactory) {
		f.backoff = fn
	}
}

// WithPolitenessDelay overrides the pause before each subpage.
func WithPolitenessDelay(fn func() time.Duration) SiteOption {
	return func(f *SiteFactory) {
		f.delay = fn
	}
}

// WithSiteLogger sets the logger handed to fetchers and spiders.
func WithSiteLogger(logger *slog.Logger) SiteOption {
	return func(f *SiteFactory) {
		f.logger = logger
	}
}

// NewSiteFactory creates a SiteFactory. jobFor turns a seed into the job
// settings for that site.
func NewSiteFactory(jobFor func(seed string) model.CrawlJob, opts ...SiteOption) *SiteFactory {
	f := &SiteFactory{
		jobFor:      jobFor,
		maxBodySize: fetch.DefaultMaxBodySize,
		backoff:     fetch.LinearBackoff,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// New builds the crawler for seed. It satisfies Factory.
func (f *SiteFactory) New(seed string) (SiteCrawler, error) {
	job := f.jobFor(seed)
	logger := f.logger.With("seed", seed)

	httpRenderer, err := fetch.NewHTTPRenderer(
		fetch.WithUserAgent(job.UserAgent),
		fetch.WithTimeout(job.Timeout),
		fetch.WithHeaders(job.Headers),
		fetch.WithProxy(f.proxy),
		fetch.WithMaxBodySize(f.maxBodySize),
	)
	if err != nil {
		return nil, err
	}

	var renderer fetch.Renderer = httpRenderer
	var session fetch.Session
	if f.browser != nil {
		session, err = f.browser.NewSession(fetch.SessionSettings{
			UserAgent:       job.UserAgent,
			Headers:         job.Headers,
			NavigateTimeout: job.Timeout,
			RenderWait:      job.RenderWait,
			RenderTimeout:   job.RenderTimeout,
		})
		if err != nil {
			return nil, err
		}
		renderer = session
	}

	fetcher := fetch.NewFetcher(renderer,
		fetch.WithMaxRetries(job.MaxRetries),
		fetch.WithBackoff(f.backoff),
		fetch.WithFetchLogger(logger),
	)

	opts := []crawler.SpiderOption{
		crawler.WithLogger(logger),
		crawler.WithDelayFunc(f.delay),
	}
	if job.RespectRobots {
		opts = append(opts, crawler.WithRobots(httpRenderer.Robots()))
	}

	spider := crawler.NewSpider(job, fetcher, opts...)
	if session == nil {
		return spider, nil
	}
	return &sessionCrawler{SiteCrawler: spider, session: session, logger: logger}, nil
}

// sessionCrawler closes its browser session once the crawl ends.
type sessionCrawler struct {
	SiteCrawler
	session fetch.Session
	logger  *slog.Logger
}

func (c *sessionCrawler) Crawl(ctx context.Context) (model.CrawlResult, error) {
	defer func() {
		if err := c.session.Close(); err != nil {
			c.logger.Warn("failed to close browser session", "error", err)
		}
	}()
	return c.SiteCrawler.Crawl(ctx)
}
