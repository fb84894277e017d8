// Package pipeline runs crawl jobs for a batch of sites.
//
// A Dispatcher takes a list of seed URLs, crawls them concurrently with a
// bounded number of workers, and returns one result per seed in input
// order. A failing or panicking job never affects its neighbours: its slot
// holds an empty result carrying the error text.
//
// SiteFactory assembles the per-job parts (job settings, fetcher, robots
// checker and spider) so that no mutable crawl state is shared between
// jobs.
package pipeline
