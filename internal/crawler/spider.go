package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/contactscan/internal/extract"
	"github.com/nao1215/contactscan/internal/model"
)

// ErrSeedUnreachable is returned when the seed page could not be fetched.
var ErrSeedUnreachable = errors.New("seed page unreachable")

// Fetcher retrieves the rendered HTML of a URL.
// Implementations handle their own retries and never panic on network errors;
// a failed fetch is reported through PageFetchResult.OK.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) model.PageFetchResult
}

// RobotsChecker decides whether a URL may be crawled.
type RobotsChecker interface {
	Allowed(ctx context.Context, rawURL string) bool
}

// Spider crawls one site for a single CrawlJob.
// The visited set and frontier belong to the spider and are reset at the
// start of every Crawl, so a Spider must not be shared between goroutines.
type Spider struct {
	job     model.CrawlJob
	fetcher Fetcher
	robots  RobotsChecker
	logger  *slog.Logger

	// delay returns the politeness pause before a subpage fetch.
	delay func() time.Duration

	// onState is called on every state transition.
	onState func(State)

	state           State
	visited         visitedSet
	frontier        *frontier
	emails          model.EmailSet
	pagesVisited    int
	subpagesVisited int
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithLogger sets the logger used for crawl progress.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRobots enables robots.txt checks for subpages when the job asks for it.
func WithRobots(robots RobotsChecker) SpiderOption {
	return func(s *Spider) {
		s.robots = robots
	}
}

// WithDelayFunc overrides how the politeness delay is chosen.
func WithDelayFunc(fn func() time.Duration) SpiderOption {
	return func(s *Spider) {
		if fn != nil {
			s.delay = fn
		}
	}
}

// WithStateHook registers a function called on every state transition.
func WithStateHook(fn func(State)) SpiderOption {
	return func(s *Spider) {
		s.onState = fn
	}
}

// NewSpider creates a Spider for job that fetches pages through fetcher.
func NewSpider(job model.CrawlJob, fetcher Fetcher, opts ...SpiderOption) *Spider {
	s := &Spider{
		job:     job,
		fetcher: fetcher,
		logger:  slog.Default(),
		delay:   job.Delay.Draw,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// State returns the current state.
func (s *Spider) State() State {
	return s.state
}

// Crawl runs the job and returns its result.
//
// The returned result is always usable. The error is non-nil when the seed
// could not be fetched or the context ended the crawl early; in the latter
// case the result holds the emails found so far.
func (s *Spider) Crawl(ctx context.Context) (model.CrawlResult, error) {
	s.reset()

	result := model.NewEmptyResult(s.job.Seed)
	result.StartedAt = time.Now()

	err := s.run(ctx, &result)

	result.Emails = s.emails.Sorted()
	result.PagesVisited = s.pagesVisited
	result.FinishedAt = time.Now()
	if err != nil {
		result.Error = err.Error()
	}
	s.transition(StateDone)

	return result, err
}

// run walks the state machine up to, but not including, StateDone.
func (s *Spider) run(ctx context.Context, result *model.CrawlResult) error {
	if err := s.job.Validate(); err != nil {
		return err
	}

	seed := model.NormalizeSeed(s.job.Seed)
	result.URL = seed

	s.transition(StateFetchingSeed)
	page := s.fetcher.Fetch(ctx, seed)
	s.visited.add(normalizeURL(seed))
	s.pagesVisited++

	if !page.OK {
		if page.Err != nil {
			return fmt.Errorf("%w: %s: %w", ErrSeedUnreachable, seed, page.Err)
		}
		return fmt.Errorf("%w: %s", ErrSeedUnreachable, seed)
	}

	s.transition(StateExtractingSeed)
	s.processSeed(seed, page.HTML)

	s.transition(StateDraining)
	return s.drain(ctx)
}

// processSeed extracts the seed's emails and fills the frontier.
func (s *Spider) processSeed(seed, pageHTML string) {
	doc, err := extract.ParseDocument(pageHTML)
	if err != nil {
		s.logger.Debug("failed to parse seed page", "url", seed, "error", err)
		return
	}

	s.emails.Union(extract.ExtractDocument(doc))

	base, err := url.Parse(seed)
	if err != nil {
		return
	}
	links := DiscoverDocument(doc, base)
	s.frontier.push(links...)

	s.logger.Debug("seed page processed",
		"url", seed,
		"emails", s.emails.Len(),
		"subpages", len(links),
	)
}

// drain visits frontier URLs until the frontier or the subpage budget runs out.
// Links found on subpages are not enqueued.
func (s *Spider) drain(ctx context.Context) error {
	for s.frontier.len() > 0 && s.subpagesVisited < s.job.MaxSubpages {
		if err := ctx.Err(); err != nil {
			return err
		}

		next, _ := s.frontier.pop()
		key := normalizeURL(next)
		if s.visited.contains(key) {
			continue
		}

		if s.job.RespectRobots && s.robots != nil && !s.robots.Allowed(ctx, next) {
			s.logger.Debug("subpage disallowed by robots.txt", "url", next)
			continue
		}

		if err := sleepContext(ctx, s.delay()); err != nil {
			return err
		}

		s.logger.Debug("fetching subpage",
			"url", next,
			"subpage", s.subpagesVisited+1,
			"max_subpages", s.job.MaxSubpages,
		)

		page := s.fetcher.Fetch(ctx, next)
		s.visited.add(key)
		s.subpagesVisited++
		s.pagesVisited++

		if !page.OK {
			s.logger.Debug("subpage fetch failed", "url", next, "error", page.Err)
			continue
		}
		s.emails.Union(extract.Extract(page.HTML))
	}

	return nil
}

// reset clears per-run state.
func (s *Spider) reset() {
	s.state = StateIdle
	s.visited = make(visitedSet)
	s.frontier = newFrontier()
	s.emails = model.NewEmailSet()
	s.pagesVisited = 0
	s.subpagesVisited = 0
}

// transition moves the spider to next and notifies the hook.
func (s *Spider) transition(next State) {
	if s.state == next {
		return
	}
	s.logger.Debug("crawl state changed",
		"seed", s.job.Seed,
		"from", s.state.String(),
		"to", next.String(),
	)
	s.state = next
	if s.onState != nil {
		s.onState(next)
	}
}

// normalizeURL returns the visited-set key for a URL.
// Fragments do not change the fetched document, and an empty path is the
// same resource as "/".
func normalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
