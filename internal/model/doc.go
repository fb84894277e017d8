// Package model defines the core data structures used throughout contactscan.
//
// This package contains the following main types:
//   - CrawlJob: The immutable settings for crawling one site
//   - PageFetchResult: The rendered HTML of a single page visit
//   - EmailSet: A case-insensitive set of validated email addresses
//   - CrawlResult: The emails found for one input site
//
// Models live in their own package so that the crawler, pipeline, report,
// database and sheet packages can share them without import cycles.
// CrawlResult is serializable to JSON for report output and database storage.
package model
