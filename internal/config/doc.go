// Package config holds the runtime configuration for contactscan: crawl
// limits, fetch settings, report options and the optional per-site YAML
// file that adds headers, cookies and budgets for individual hosts.
package config
