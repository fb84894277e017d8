package fetch

import "errors"

var (
	// ErrRenderFailed is returned when a renderer could not produce a page.
	ErrRenderFailed = errors.New("failed to render page")

	// ErrInvalidProxyAddress is returned when the proxy address is not "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrBrowserUnavailable is returned when headless Chrome cannot be started.
	ErrBrowserUnavailable = errors.New("headless browser unavailable")

	// ErrEmptyURL is returned when asked to render an empty URL.
	ErrEmptyURL = errors.New("empty url")
)
