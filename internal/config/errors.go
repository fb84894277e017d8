package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoTarget is returned when no site URL or input file is given.
	ErrNoTarget = errors.New("no target specified: provide a URL or use --list")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxSubpages is returned when the subpage budget is negative.
	ErrInvalidMaxSubpages = errors.New("invalid max subpages: must be non-negative")

	// ErrInvalidMaxRetries is returned when the retry count is negative.
	ErrInvalidMaxRetries = errors.New("invalid max retries: must be non-negative")

	// ErrInvalidDelay is returned when the politeness delay range is negative
	// or its minimum exceeds its maximum.
	ErrInvalidDelay = errors.New("invalid delay range: need 0 <= min <= max")

	// ErrInvalidWorkers is returned when the worker count is negative.
	ErrInvalidWorkers = errors.New("invalid workers: must be non-negative")

	// ErrInvalidRenderTimeout is returned when the render wait or the render
	// timeout is not positive, or the wait exceeds the timeout.
	ErrInvalidRenderTimeout = errors.New("invalid render timing: need 0 < wait <= timeout")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")
)
