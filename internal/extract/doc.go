// Package extract finds contact email addresses in rendered HTML pages.
//
// # Strategies
//
// Three independent strategies run over every page and their results are
// unioned:
//
//   - mailto links: the target of every <a href="mailto:...">
//   - visible text: a regex scan over the page's text nodes
//   - script obfuscation: string-literal concatenation such as
//     "jane" + "@" + "acme.org", and numeric character entities (&#64;)
//     decoded before a regex scan of the script body
//
// Every candidate goes through Validate, which drops addresses that do not
// look like a real mailbox or that belong to placeholder domains.
//
// # Accuracy
//
// The patterns are a practical heuristic, not an RFC 5322 grammar. Missing
// an address is acceptable; reporting a placeholder is not, so the
// validator errs on the side of rejection. Nothing in this package returns
// an error: malformed input simply yields no matches.
package extract
