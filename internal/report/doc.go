// Package report renders batch crawl results for humans and tools.
//
// Three formats are available: plain text for terminals (SimpleWriter),
// JSON for tooling (JSONWriter) and GitHub-flavored Markdown with summary
// tables and a mermaid chart (MarkdownWriter). All implement Writer, and
// MultiWriter fans one batch out to several of them.
package report
