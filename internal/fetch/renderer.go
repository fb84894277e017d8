package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/net/proxy"

	"github.com/nao1215/contactscan/internal/model"
)

// DefaultMaxBodySize caps how much of a response body is read.
const DefaultMaxBodySize int64 = 5 * 1024 * 1024

// Renderer produces the HTML of a URL.
// Implementations must be safe for concurrent use.
type Renderer interface {
	Render(ctx context.Context, rawURL string) (string, error)
}

// HTTPRenderer fetches pages with a plain HTTP GET.
// The body is returned for any status code; only transport errors fail.
type HTTPRenderer struct {
	client      *http.Client
	userAgent   string
	headers     http.Header
	cookie      string
	maxBodySize int64
}

// HTTPOption configures an HTTPRenderer.
type HTTPOption func(*httpSettings)

type httpSettings struct {
	userAgent    string
	timeout      time.Duration
	headers      http.Header
	cookie       string
	proxyAddress string
	maxBodySize  int64
	transport    http.RoundTripper
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(s *httpSettings) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(s *httpSettings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithHeaders adds extra headers to every request.
func WithHeaders(h http.Header) HTTPOption {
	return func(s *httpSettings) {
		s.headers = h.Clone()
	}
}

// WithCookie sends a raw cookie string with every request.
func WithCookie(cookie string) HTTPOption {
	return func(s *httpSettings) {
		s.cookie = cookie
	}
}

// WithProxy routes requests through a SOCKS5 proxy at "host:port".
func WithProxy(address string) HTTPOption {
	return func(s *httpSettings) {
		s.proxyAddress = address
	}
}

// WithMaxBodySize limits how many bytes of a body are read.
func WithMaxBodySize(n int64) HTTPOption {
	return func(s *httpSettings) {
		if n > 0 {
			s.maxBodySize = n
		}
	}
}

// WithTransport replaces the HTTP transport. Mostly useful in tests.
func WithTransport(rt http.RoundTripper) HTTPOption {
	return func(s *httpSettings) {
		s.transport = rt
	}
}

// NewHTTPRenderer creates an HTTPRenderer.
// It returns ErrInvalidProxyAddress when a malformed proxy is configured.
func NewHTTPRenderer(opts ...HTTPOption) (*HTTPRenderer, error) {
	s := &httpSettings{
		userAgent:   model.DefaultUserAgent,
		timeout:     model.DefaultTimeout,
		headers:     make(http.Header),
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(s)
	}

	transport := s.transport
	if transport == nil {
		t := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // DefaultTransport is always *http.Transport
		t.MaxIdleConnsPerHost = 4
		t.IdleConnTimeout = 30 * time.Second

		if s.proxyAddress != "" {
			if !isValidProxyAddress(s.proxyAddress) {
				return nil, ErrInvalidProxyAddress
			}
			dialer, err := proxy.SOCKS5("tcp", s.proxyAddress, nil, proxy.Direct)
			if err != nil {
				return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
			}
			t.Proxy = nil
			t.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				if cd, ok := dialer.(proxy.ContextDialer); ok {
					return cd.DialContext(ctx, network, addr)
				}
				return dialer.Dial(network, addr)
			}
		}
		transport = t
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	return &HTTPRenderer{
		client: &http.Client{
			Transport: transport,
			Timeout:   s.timeout,
			Jar:       jar,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		userAgent:   s.userAgent,
		headers:     s.headers,
		cookie:      s.cookie,
		maxBodySize: s.maxBodySize,
	}, nil
}

// Render implements Renderer.
func (r *HTTPRenderer) Render(ctx context.Context, rawURL string) (string, error) {
	if rawURL == "" {
		return "", ErrEmptyURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}
	r.applyHeaders(req)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, r.maxBodySize)

	// Fall back to the raw bytes when the declared charset is unknown.
	reader, err := charset.NewReader(body, resp.Header.Get("Content-Type"))
	if err != nil {
		reader = body
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("%w: reading body: %w", ErrRenderFailed, err)
	}

	return string(data), nil
}

// Robots returns a robots.txt checker that shares r's client, so rules are
// fetched through the same proxy with the same headers and cookie.
func (r *HTTPRenderer) Robots() *Robots {
	robots := NewRobots(r.client, r.userAgent)
	robots.prepare = r.applyHeaders
	return robots
}

func (r *HTTPRenderer) applyHeaders(req *http.Request) {
	for name, values := range r.headers {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	req.Header.Set("User-Agent", r.userAgent)
	if r.cookie != "" {
		req.Header.Set("Cookie", r.cookie)
	}
}

// isValidProxyAddress checks for a "host:port" address with a usable port.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" || strings.Contains(address, "://") {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}
