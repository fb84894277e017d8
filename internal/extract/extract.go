package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/contactscan/internal/model"
)

// textEmailPattern finds addresses inside free text.
var textEmailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[A-Za-z]{2,}`)

const mailtoPrefix = "mailto:"

// ParseDocument parses rendered HTML into a goquery document.
// Malformed markup is repaired by the HTML5 parser; the error is only
// non-nil when the reader itself fails.
func ParseDocument(pageHTML string) (*goquery.Document, error) {
	root, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromNode(root), nil
}

// Extract returns every validated address found in pageHTML.
func Extract(pageHTML string) model.EmailSet {
	doc, err := ParseDocument(pageHTML)
	if err != nil {
		return model.NewEmailSet()
	}
	return ExtractDocument(doc)
}

// ExtractDocument runs all strategies over an already parsed document.
func ExtractDocument(doc *goquery.Document) model.EmailSet {
	emails := FromMailtoLinks(doc)
	emails.Union(FromVisibleText(doc))
	emails.Union(FromScripts(doc))
	return emails
}

// FromMailtoLinks collects the targets of mailto hyperlinks.
// The "mailto:" prefix and any query string (?subject=...) are removed.
func FromMailtoLinks(doc *goquery.Document) model.EmailSet {
	emails := model.NewEmailSet()

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if len(href) < len(mailtoPrefix) || !strings.EqualFold(href[:len(mailtoPrefix)], mailtoPrefix) {
			return
		}

		addr := href[len(mailtoPrefix):]
		addr, _, _ = strings.Cut(addr, "?")
		if unescaped, err := url.PathUnescape(addr); err == nil {
			addr = unescaped
		}
		addr = model.NormalizeEmail(addr)

		if Validate(addr) {
			emails.Add(addr)
		}
	})

	return emails
}

// FromVisibleText scans the page's text nodes for addresses.
func FromVisibleText(doc *goquery.Document) model.EmailSet {
	return FromText(VisibleText(doc))
}

// VisibleText joins every non-blank text node with a single space.
// Script and style bodies are skipped since a browser does not display them;
// FromScripts covers script bodies separately.
func VisibleText(doc *goquery.Document) string {
	parts := make([]string, 0)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	for _, n := range doc.Nodes {
		walk(n)
	}

	return strings.Join(parts, " ")
}

// FromText applies the address pattern to free text.
func FromText(text string) model.EmailSet {
	emails := model.NewEmailSet()
	if text == "" {
		return emails
	}

	for _, match := range textEmailPattern.FindAllString(text, -1) {
		candidate := model.NormalizeEmail(match)
		if Validate(candidate) {
			emails.Add(candidate)
		}
	}

	return emails
}

// FromScripts decodes obfuscated addresses in every inline script block.
func FromScripts(doc *goquery.Document) model.EmailSet {
	emails := model.NewEmailSet()

	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		emails.Union(FromObfuscatedScript(s.Text()))
	})

	return emails
}
