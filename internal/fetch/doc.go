// Package fetch retrieves the rendered HTML of web pages.
//
// A Fetcher wraps a Renderer with retries and backoff and never returns an
// error: a page that could not be loaded is reported as a failed
// model.PageFetchResult so a crawl can carry on with the next page.
//
// Two renderers are provided. HTTPRenderer performs a plain GET and decodes
// the body to UTF-8. A RodBrowser drives headless Chrome through go-rod;
// its Sessions snapshot the DOM after the page has settled, which picks up
// content that scripts insert after load. Each Session is an incognito
// browser context carrying one job's user agent and headers.
package fetch
