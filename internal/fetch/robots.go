package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/nao1215/contactscan/internal/model"
)

// Robots answers robots.txt questions for one crawl.
// Each host's rules are downloaded once. Any failure to obtain the rules
// allows the URL.
type Robots struct {
	client    *http.Client
	userAgent string

	// prepare sets the request headers of a robots.txt fetch.
	prepare func(*http.Request)

	mu    sync.Mutex
	cache map[string]*robotstxt.RobotsData
}

// NewRobots creates a Robots checker. A nil client uses a client with the
// default request timeout.
func NewRobots(client *http.Client, userAgent string) *Robots {
	if client == nil {
		client = &http.Client{Timeout: model.DefaultTimeout}
	}
	if userAgent == "" {
		userAgent = model.DefaultUserAgent
	}
	return &Robots{
		client:    client,
		userAgent: userAgent,
		prepare: func(req *http.Request) {
			req.Header.Set("User-Agent", userAgent)
		},
		cache: make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether rawURL may be fetched.
func (r *Robots) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}

	data, err := r.rulesFor(ctx, u)
	if err != nil {
		return true
	}

	group := data.FindGroup(r.userAgent)
	if group == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return group.Test(path)
}

func (r *Robots) rulesFor(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	key := u.Scheme + "://" + u.Host

	r.mu.Lock()
	data, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return data, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, key+"/robots.txt", nil)
	if err != nil {
		return nil, err
	}
	r.prepare(req)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching robots.txt: %w", err)
	}
	defer resp.Body.Close()

	data, err = robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parsing robots.txt: %w", err)
	}

	r.mu.Lock()
	r.cache[key] = data
	r.mu.Unlock()
	return data, nil
}
