package crawler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/contactscan/internal/model"
)

// fakeFetcher serves canned pages and records every fetch.
type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string]string
	failing map[string]bool
	fetched []string
}

func newFakeFetcher(pages map[string]string) *fakeFetcher {
	return &fakeFetcher{pages: pages, failing: make(map[string]bool)}
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) model.PageFetchResult {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetched = append(f.fetched, rawURL)
	if f.failing[rawURL] {
		return model.PageFetchResult{URL: rawURL, Attempts: 3, Err: errors.New("connection refused")}
	}
	html, ok := f.pages[rawURL]
	if !ok {
		return model.PageFetchResult{URL: rawURL, OK: true, Attempts: 1, HTML: "<html></html>"}
	}
	return model.PageFetchResult{URL: rawURL, OK: true, Attempts: 1, HTML: html}
}

func (f *fakeFetcher) fetchCount(rawURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, u := range f.fetched {
		if u == rawURL {
			n++
		}
	}
	return n
}

// testJob returns a job without politeness delays.
func testJob(seed string, maxSubpages int) model.CrawlJob {
	job := model.NewCrawlJob(seed)
	job.MaxSubpages = maxSubpages
	job.Delay = model.DelayRange{}
	return job
}

// seedWithLinks builds a seed page linking to n contact-like pages.
func seedWithLinks(n int) string {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i := range n {
		fmt.Fprintf(&sb, `<a href="/contact-%d">Contact %d</a>`, i, i)
	}
	sb.WriteString("</body></html>")
	return sb.String()
}

// TestSpiderCrawl tests the site crawl state machine.
func TestSpiderCrawl(t *testing.T) {
	t.Parallel()

	t.Run("collects emails from seed and subpages", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher(map[string]string{
			"https://acme.io": `<html><body>
				<a href="mailto:Hello@Acme.io">mail</a>
				<a href="/contact">Contact</a>
				<a href="/about">About</a>
			</body></html>`,
			"https://acme.io/contact": `<p>sales@acme.io</p>`,
			"https://acme.io/about":   `<script>var e = "ceo" + "@" + "acme.io";</script>`,
		})

		result, err := NewSpider(testJob("acme.io", 10), fetcher).Crawl(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"ceo@acme.io", "hello@acme.io", "sales@acme.io"}
		if !slices.Equal(result.Emails, want) {
			t.Errorf("expected %v, got %v", want, result.Emails)
		}
		if result.URL != "https://acme.io" {
			t.Errorf("expected normalized URL, got %q", result.URL)
		}
		if result.Seed != "acme.io" {
			t.Errorf("expected original seed, got %q", result.Seed)
		}
		if result.PagesVisited != 3 {
			t.Errorf("expected 3 pages visited, got %d", result.PagesVisited)
		}
	})

	t.Run("normalizes a seed without scheme before fetching", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher(map[string]string{})
		_, _ = NewSpider(testJob("example.org", 10), fetcher).Crawl(context.Background())

		if len(fetcher.fetched) == 0 || fetcher.fetched[0] != "https://example.org" {
			t.Errorf("expected first fetch of https://example.org, got %v", fetcher.fetched)
		}
	})

	t.Run("visits exactly max subpages", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher(map[string]string{
			"https://acme.io": seedWithLinks(10),
		})

		result, err := NewSpider(testJob("https://acme.io", 3), fetcher).Crawl(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(fetcher.fetched) != 4 {
			t.Fatalf("expected seed + 3 subpages, got %v", fetcher.fetched)
		}
		want := []string{
			"https://acme.io",
			"https://acme.io/contact-0",
			"https://acme.io/contact-1",
			"https://acme.io/contact-2",
		}
		if !slices.Equal(fetcher.fetched, want) {
			t.Errorf("expected FIFO order %v, got %v", want, fetcher.fetched)
		}
		if result.PagesVisited != 4 {
			t.Errorf("expected 4 pages visited, got %d", result.PagesVisited)
		}
	})

	t.Run("zero budget fetches only the seed", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher(map[string]string{"https://acme.io": seedWithLinks(5)})
		_, _ = NewSpider(testJob("https://acme.io", 0), fetcher).Crawl(context.Background())

		if len(fetcher.fetched) != 1 {
			t.Errorf("expected only the seed, got %v", fetcher.fetched)
		}
	})

	t.Run("duplicate frontier entries are fetched once", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher(map[string]string{
			"https://acme.io": `<a href="/contact">Contact</a><a href="/contact#form">Contact form</a><a href="/">About</a>`,
		})

		_, err := NewSpider(testJob("https://acme.io", 10), fetcher).Crawl(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if n := fetcher.fetchCount("https://acme.io/contact"); n != 1 {
			t.Errorf("expected one fetch of /contact, got %d", n)
		}
		if n := fetcher.fetchCount("https://acme.io/contact#form"); n != 0 {
			t.Errorf("expected fragment variant to be skipped, got %d fetches", n)
		}
		if n := fetcher.fetchCount("https://acme.io/"); n != 0 {
			t.Errorf("expected seed not to be refetched, got %d fetches", n)
		}
	})

	t.Run("subpage links are not enqueued", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher(map[string]string{
			"https://acme.io":         `<a href="/contact">Contact</a>`,
			"https://acme.io/contact": `<a href="/team">Team</a><a href="/support">Support</a>`,
		})

		_, err := NewSpider(testJob("https://acme.io", 10), fetcher).Crawl(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []string{"https://acme.io", "https://acme.io/contact"}
		if !slices.Equal(fetcher.fetched, want) {
			t.Errorf("expected %v, got %v", want, fetcher.fetched)
		}
	})

	t.Run("failed subpage does not end the crawl", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher(map[string]string{
			"https://acme.io":       `<a href="/contact">Contact</a><a href="/about">About</a>`,
			"https://acme.io/about": `<p>team@acme.io</p>`,
		})
		fetcher.failing["https://acme.io/contact"] = true

		result, err := NewSpider(testJob("https://acme.io", 10), fetcher).Crawl(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(result.Emails, []string{"team@acme.io"}) {
			t.Errorf("expected [team@acme.io], got %v", result.Emails)
		}
	})

	t.Run("failed subpage counts toward the budget", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher(map[string]string{"https://acme.io": seedWithLinks(4)})
		fetcher.failing["https://acme.io/contact-0"] = true

		_, _ = NewSpider(testJob("https://acme.io", 2), fetcher).Crawl(context.Background())
		if len(fetcher.fetched) != 3 {
			t.Errorf("expected seed + 2 subpages, got %v", fetcher.fetched)
		}
	})

	t.Run("unreachable seed ends with an empty result", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher(map[string]string{})
		fetcher.failing["https://down.io"] = true

		var states []State
		spider := NewSpider(testJob("down.io", 10), fetcher, WithStateHook(func(s State) {
			states = append(states, s)
		}))
		result, err := spider.Crawl(context.Background())

		if !errors.Is(err, ErrSeedUnreachable) {
			t.Errorf("expected ErrSeedUnreachable, got %v", err)
		}
		if len(result.Emails) != 0 {
			t.Errorf("expected no emails, got %v", result.Emails)
		}
		if result.Error == "" {
			t.Error("expected error message in result")
		}
		want := []State{StateFetchingSeed, StateDone}
		if !slices.Equal(states, want) {
			t.Errorf("expected states %v, got %v", want, states)
		}
	})

	t.Run("walks every state on success", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher(map[string]string{"https://acme.io": seedWithLinks(1)})

		var states []State
		spider := NewSpider(testJob("https://acme.io", 10), fetcher, WithStateHook(func(s State) {
			states = append(states, s)
		}))
		if spider.State() != StateIdle {
			t.Errorf("expected idle before crawl, got %v", spider.State())
		}
		_, _ = spider.Crawl(context.Background())

		want := []State{StateFetchingSeed, StateExtractingSeed, StateDraining, StateDone}
		if !slices.Equal(states, want) {
			t.Errorf("expected states %v, got %v", want, states)
		}
		if spider.State() != StateDone {
			t.Errorf("expected done, got %v", spider.State())
		}
	})

	t.Run("seed emails do not stop subpage crawling", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher(map[string]string{
			"https://acme.io":         `<p>info@acme.io</p><a href="/contact">Contact</a>`,
			"https://acme.io/contact": `<p>sales@acme.io</p>`,
		})

		result, _ := NewSpider(testJob("https://acme.io", 10), fetcher).Crawl(context.Background())
		if len(result.Emails) != 2 {
			t.Errorf("expected seed and subpage emails, got %v", result.Emails)
		}
	})

	t.Run("applies a politeness delay before each subpage", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher(map[string]string{"https://acme.io": seedWithLinks(3)})

		calls := 0
		spider := NewSpider(testJob("https://acme.io", 10), fetcher, WithDelayFunc(func() time.Duration {
			calls++
			return time.Millisecond
		}))
		_, _ = spider.Crawl(context.Background())

		if calls != 3 {
			t.Errorf("expected 3 delays, got %d", calls)
		}
	})

	t.Run("cancellation stops draining with partial results", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher(map[string]string{
			"https://acme.io": `<p>info@acme.io</p>` + seedWithLinks(3),
		})

		ctx, cancel := context.WithCancel(context.Background())
		spider := NewSpider(testJob("https://acme.io", 10), fetcher, WithDelayFunc(func() time.Duration {
			cancel()
			return time.Hour
		}))
		result, err := spider.Crawl(ctx)

		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if !slices.Equal(result.Emails, []string{"info@acme.io"}) {
			t.Errorf("expected seed emails to survive, got %v", result.Emails)
		}
		if len(fetcher.fetched) != 1 {
			t.Errorf("expected only the seed fetch, got %v", fetcher.fetched)
		}
	})

	t.Run("robots disallow skips subpages when enabled", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher(map[string]string{
			"https://acme.io": `<a href="/private/contact">Contact</a><a href="/about">About</a>`,
		})
		job := testJob("https://acme.io", 10)
		job.RespectRobots = true

		robots := robotsFunc(func(_ context.Context, rawURL string) bool {
			return !strings.Contains(rawURL, "/private/")
		})
		_, _ = NewSpider(job, fetcher, WithRobots(robots)).Crawl(context.Background())

		want := []string{"https://acme.io", "https://acme.io/about"}
		if !slices.Equal(fetcher.fetched, want) {
			t.Errorf("expected %v, got %v", want, fetcher.fetched)
		}
	})

	t.Run("empty seed is rejected", func(t *testing.T) {
		t.Parallel()

		fetcher := newFakeFetcher(map[string]string{})
		result, err := NewSpider(testJob("  ", 10), fetcher).Crawl(context.Background())
		if !errors.Is(err, model.ErrEmptySeed) {
			t.Errorf("expected ErrEmptySeed, got %v", err)
		}
		if len(fetcher.fetched) != 0 {
			t.Errorf("expected no fetch, got %v", fetcher.fetched)
		}
		if result.Emails == nil {
			t.Error("expected non-nil email slice")
		}
	})
}

// robotsFunc adapts a function to RobotsChecker.
type robotsFunc func(ctx context.Context, rawURL string) bool

func (f robotsFunc) Allowed(ctx context.Context, rawURL string) bool {
	return f(ctx, rawURL)
}

// TestDrainDeduplicatesFrontier feeds the same URL twice into the frontier.
func TestDrainDeduplicatesFrontier(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher(map[string]string{})
	spider := NewSpider(testJob("https://acme.io", 10), fetcher)
	spider.reset()
	spider.frontier.push("https://acme.io/contact", "https://acme.io/contact", "https://ACME.io/contact")

	if err := spider.drain(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fetcher.fetched) != 1 {
		t.Errorf("expected exactly one fetch, got %v", fetcher.fetched)
	}
	if spider.subpagesVisited != 1 {
		t.Errorf("expected 1 subpage visited, got %d", spider.subpagesVisited)
	}
}

// TestNormalizeURL tests visited-set keys.
func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "https://acme.io", want: "https://acme.io/"},
		{in: "HTTPS://ACME.io/Contact#x", want: "https://acme.io/Contact"},
		{in: "https://acme.io/a?b=1", want: "https://acme.io/a?b=1"},
	}
	for _, tt := range tests {
		if got := normalizeURL(tt.in); got != tt.want {
			t.Errorf("normalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
