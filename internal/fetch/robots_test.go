package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// TestRobots tests robots.txt checks.
func TestRobots(t *testing.T) {
	t.Parallel()

	t.Run("disallowed paths are rejected", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/robots.txt" {
				hits.Add(1)
				_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
				return
			}
			http.NotFound(w, r)
		}))
		defer srv.Close()

		robots := NewRobots(srv.Client(), "")
		ctx := context.Background()

		if robots.Allowed(ctx, srv.URL+"/private/contact") {
			t.Error("expected /private/contact to be disallowed")
		}
		if !robots.Allowed(ctx, srv.URL+"/contact") {
			t.Error("expected /contact to be allowed")
		}
		if !robots.Allowed(ctx, srv.URL) {
			t.Error("expected root to be allowed")
		}
		if n := hits.Load(); n != 1 {
			t.Errorf("expected robots.txt to be fetched once, got %d", n)
		}
	})

	t.Run("missing robots.txt allows everything", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		robots := NewRobots(srv.Client(), "")
		if !robots.Allowed(context.Background(), srv.URL+"/contact") {
			t.Error("expected allow when robots.txt is missing")
		}
	})

	t.Run("unreachable host fails open", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()

		robots := NewRobots(nil, "")
		if !robots.Allowed(context.Background(), addr+"/contact") {
			t.Error("expected allow when robots.txt cannot be fetched")
		}
	})

	t.Run("renderer robots share headers and cookie", func(t *testing.T) {
		t.Parallel()

		var gotUA, gotHeader, gotCookie string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/robots.txt" {
				http.NotFound(w, r)
				return
			}
			gotUA = r.UserAgent()
			gotHeader = r.Header.Get("X-Api-Key")
			gotCookie = r.Header.Get("Cookie")
			_, _ = w.Write([]byte("User-agent: acmebot\nDisallow: /team\n"))
		}))
		defer srv.Close()

		headers := make(http.Header)
		headers.Set("X-Api-Key", "abc")
		renderer, err := NewHTTPRenderer(
			WithUserAgent("acmebot/1.0"),
			WithHeaders(headers),
			WithCookie("session=1"),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		robots := renderer.Robots()
		if robots.Allowed(context.Background(), srv.URL+"/team") {
			t.Error("expected /team to be disallowed for acmebot")
		}
		if gotUA != "acmebot/1.0" || gotHeader != "abc" || gotCookie != "session=1" {
			t.Errorf("unexpected request headers: ua=%q header=%q cookie=%q", gotUA, gotHeader, gotCookie)
		}
	})

	t.Run("unparseable url is allowed", func(t *testing.T) {
		t.Parallel()

		if !NewRobots(nil, "").Allowed(context.Background(), "%zz") {
			t.Error("expected allow for a bad URL")
		}
	})
}
