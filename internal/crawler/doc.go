// Package crawler crawls a single website looking for contact email addresses.
//
// # Architecture
//
// The Spider type runs one crawl job. It fetches the seed page, extracts
// its emails, and discovers same-host links whose anchor text or path looks
// like a contact page ("contact", "about", "team", ...). Those links form a
// FIFO frontier that is drained one page at a time until it is empty or the
// subpage budget is spent.
//
// The crawl is one hop deep on purpose: only the seed page feeds the
// frontier. Links found on subpages are ignored, which bounds the cost of a
// job to 1 + MaxSubpages fetches.
//
// # Components
//
//   - Spider: the per-site state machine (Idle, FetchingSeed,
//     ExtractingSeed, Draining, Done)
//   - Discover: keyword-ranked same-host link discovery
//   - frontier and visitedSet: job-local crawl state, never shared
//
// # Politeness
//
//   - One request at a time per site
//   - A random delay from the job's delay range before each subpage
//   - Optional robots.txt checks for subpages
//
// # Usage
//
//	spider := crawler.NewSpider(job, fetcher, crawler.WithLogger(logger))
//	result := spider.Crawl(ctx)
package crawler
