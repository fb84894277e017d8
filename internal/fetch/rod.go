package fetch

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/nao1215/contactscan/internal/model"
)

// Session is a Renderer bound to one crawl job. Close releases the
// browser state it holds.
type Session interface {
	Renderer
	Close() error
}

// SessionSettings are the per-job knobs of a browser session.
type SessionSettings struct {
	// UserAgent is reported by every tab of the session.
	UserAgent string

	// Headers are sent with every request the pages make, Cookie included.
	Headers http.Header

	// NavigateTimeout bounds connecting to a page and receiving its document.
	NavigateTimeout time.Duration

	// RenderWait is how long the network must be quiet before the DOM is read.
	RenderWait time.Duration

	// RenderTimeout bounds a single Render regardless of idle detection.
	RenderTimeout time.Duration
}

func (s SessionSettings) withDefaults() SessionSettings {
	if s.UserAgent == "" {
		s.UserAgent = model.DefaultUserAgent
	}
	if s.NavigateTimeout <= 0 {
		s.NavigateTimeout = model.DefaultTimeout
	}
	if s.RenderWait <= 0 {
		s.RenderWait = model.DefaultRenderWait
	}
	if s.RenderTimeout <= 0 {
		s.RenderTimeout = model.DefaultRenderTimeout
	}
	return s
}

// RodBrowser is a headless Chrome process shared by many crawl jobs.
// Each job renders through its own incognito Session, so cookies and
// storage never leak between sites.
type RodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher

	closeOnce sync.Once
}

// RodOption configures NewRodBrowser.
type RodOption func(*rodSettings)

type rodSettings struct {
	bin   string
	proxy string
}

// WithBrowserBin uses the Chrome binary at path instead of looking one up.
func WithBrowserBin(path string) RodOption {
	return func(s *rodSettings) {
		s.bin = path
	}
}

// WithBrowserProxy routes all browser traffic through a SOCKS5 proxy at
// "host:port".
func WithBrowserProxy(address string) RodOption {
	return func(s *rodSettings) {
		s.proxy = address
	}
}

// NewRodBrowser launches headless Chrome and connects to it. It never
// downloads a browser: when no Chrome binary is installed it returns
// ErrBrowserUnavailable. Call Close to shut the browser down.
func NewRodBrowser(opts ...RodOption) (*RodBrowser, error) {
	s := &rodSettings{}
	for _, opt := range opts {
		opt(s)
	}
	if s.proxy != "" && !isValidProxyAddress(s.proxy) {
		return nil, ErrInvalidProxyAddress
	}

	bin := s.bin
	if bin == "" {
		path, found := launcher.LookPath()
		if !found {
			return nil, fmt.Errorf("%w: no Chrome or Chromium binary found", ErrBrowserUnavailable)
		}
		bin = path
	} else if _, err := os.Stat(bin); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBrowserUnavailable, err)
	}

	l := launcher.New().
		Bin(bin).
		Headless(true).
		Set("disable-gpu").
		Set("no-sandbox")
	if s.proxy != "" {
		l = l.Proxy("socks5://" + s.proxy)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBrowserUnavailable, err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: %w", ErrBrowserUnavailable, err)
	}

	return &RodBrowser{browser: browser, launcher: l}, nil
}

// NewSession opens an incognito browser context configured by s.
func (b *RodBrowser) NewSession(s SessionSettings) (Session, error) {
	incognito, err := b.browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("%w: creating browser context: %w", ErrRenderFailed, err)
	}
	return &rodSession{
		browser:  incognito,
		settings: s.withDefaults(),
		headers:  flattenHeaders(s.Headers),
	}, nil
}

// Close shuts down the browser. It is safe to call more than once.
func (b *RodBrowser) Close() error {
	var err error
	b.closeOnce.Do(func() {
		if b.browser != nil {
			err = b.browser.Close()
		}
		if b.launcher != nil {
			b.launcher.Kill()
		}
	})
	return err
}

type rodSession struct {
	browser  *rod.Browser
	settings SessionSettings

	// headers is the name, value list SetExtraHeaders expects.
	headers []string

	closeOnce sync.Once
}

// Render implements Renderer. It navigates to rawURL in a new tab, waits
// until the network has been idle for RenderWait and returns the DOM.
func (s *rodSession) Render(ctx context.Context, rawURL string) (string, error) {
	if rawURL == "" {
		return "", ErrEmptyURL
	}

	tab, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("%w: opening tab: %w", ErrRenderFailed, err)
	}
	defer tab.Close() //nolint:errcheck // the tab is discarded either way

	page := tab.Context(ctx).Timeout(s.settings.RenderTimeout)
	defer page.CancelTimeout()

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: s.settings.UserAgent}); err != nil {
		return "", fmt.Errorf("%w: setting user agent: %w", ErrRenderFailed, err)
	}
	if len(s.headers) > 0 {
		restore, err := page.SetExtraHeaders(s.headers)
		if err != nil {
			return "", fmt.Errorf("%w: setting headers: %w", ErrRenderFailed, err)
		}
		defer restore()
	}

	waitIdle := page.WaitRequestIdle(s.settings.RenderWait, nil, nil, nil)

	nav := page.Timeout(s.settings.NavigateTimeout)
	err = nav.Navigate(rawURL)
	nav.CancelTimeout()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}

	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("%w: waiting for load: %w", ErrRenderFailed, err)
	}
	waitIdle()

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("%w: reading DOM: %w", ErrRenderFailed, err)
	}
	return html, nil
}

// Close disposes the incognito context and every tab left in it.
func (s *rodSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.browser.Close()
	})
	return err
}

// flattenHeaders turns h into name, value pairs. Repeated values are
// joined with ", ", the way HTTP folds them.
func flattenHeaders(h http.Header) []string {
	pairs := make([]string, 0, 2*len(h))
	for name, values := range h {
		if len(values) == 0 {
			continue
		}
		pairs = append(pairs, name, strings.Join(values, ", "))
	}
	return pairs
}
