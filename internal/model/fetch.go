package model

// PageFetchResult is the outcome of fetching and rendering one URL.
// It is consumed by the extractor and discoverer, then discarded.
type PageFetchResult struct {
	// URL is the address that was fetched.
	URL string

	// HTML is the rendered document. Empty when OK is false.
	HTML string

	// OK reports whether the fetch eventually succeeded.
	OK bool

	// Attempts is the number of attempts made, including the first.
	Attempts int

	// Err is the last error seen when OK is false.
	Err error
}
