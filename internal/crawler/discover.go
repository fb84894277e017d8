package crawler

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/contactscan/internal/extract"
)

// Keywords mark a link as a likely contact page when found in its anchor
// text or URL path.
var Keywords = []string{
	"contact", "about", "reach", "support", "help", "info", "team", "staff",
	"brokers", "get in touch", "our people", "meet the team", "directory",
	"contact us", "about us", "reach us",
}

// Discover returns the contact-like subpage URLs linked from pageHTML.
// currentURL is the address of the page and is used to resolve relative
// links. Unparseable input yields no links.
func Discover(pageHTML, currentURL string) []string {
	base, err := url.Parse(currentURL)
	if err != nil {
		return []string{}
	}
	doc, err := extract.ParseDocument(pageHTML)
	if err != nil {
		return []string{}
	}
	return DiscoverDocument(doc, base)
}

// DiscoverDocument returns the contact-like links of an already parsed page.
//
// A link is accepted when it resolves to the same host as base (subdomains
// are different hosts), uses http or https, and its anchor text or path
// contains one of Keywords. Links are returned in document order without
// duplicates so a crawl visits them deterministically.
func DiscoverDocument(doc *goquery.Document, base *url.URL) []string {
	seen := make(map[string]bool)
	links := make([]string, 0)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)

		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		if abs.Host != base.Host {
			return
		}

		text := strings.ToLower(strings.TrimSpace(s.Text()))
		path := strings.ToLower(abs.Path)
		if !containsKeyword(text) && !containsKeyword(path) {
			return
		}

		link := abs.String()
		if !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	})

	return links
}

// containsKeyword reports whether s contains any of Keywords.
func containsKeyword(s string) bool {
	if s == "" {
		return false
	}
	for _, kw := range Keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
