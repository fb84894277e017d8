package model

import (
	"slices"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// EmailSet is a case-insensitive set of email addresses.
// Addresses are stored lowercased; the zero value is not usable, use NewEmailSet.
type EmailSet map[string]struct{}

// NewEmailSet creates a set holding the given addresses.
func NewEmailSet(emails ...string) EmailSet {
	s := make(EmailSet, len(emails))
	for _, e := range emails {
		s.Add(e)
	}
	return s
}

// NormalizeEmail trims and lowercases an address.
// A new Caser is created per call because casers are not safe for concurrent use.
func NormalizeEmail(email string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(email))
}

// Add inserts an address. Empty strings are ignored.
func (s EmailSet) Add(email string) {
	email = NormalizeEmail(email)
	if email == "" {
		return
	}
	s[email] = struct{}{}
}

// Union adds every address of other to s.
func (s EmailSet) Union(other EmailSet) {
	for e := range other {
		s[e] = struct{}{}
	}
}

// Contains reports whether the set holds email, ignoring case.
func (s EmailSet) Contains(email string) bool {
	_, ok := s[NormalizeEmail(email)]
	return ok
}

// Len returns the number of addresses.
func (s EmailSet) Len() int {
	return len(s)
}

// Sorted returns the addresses in lexical order.
func (s EmailSet) Sorted() []string {
	emails := lo.Keys(s)
	slices.Sort(emails)
	return emails
}
