// Package main provides the entry point for the contactscan CLI.
//
// contactscan finds contact email addresses on websites. It crawls each
// site's homepage and a bounded number of contact-like subpages, then
// reports the validated addresses per site.
//
// Usage:
//
//	contactscan scan <site>...
//	contactscan sheet leads.xlsx
//	contactscan serve
//
// See --help for all available options.
package main

func main() {
	Execute()
}
