package extract

import (
	"regexp"
	"strings"
)

// emailPattern matches a whole candidate address.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[A-Za-z]{2,}$`)

// phonePattern matches a North American phone number glued onto a local part,
// a common artifact of scanning text like "call 555-123-4567info@acme.org".
var phonePattern = regexp.MustCompile(`\d{3}-\d{3}-\d{4}`)

// falsePositives are fragments of template and placeholder addresses.
var falsePositives = []string{
	"example.com",
	"domain.com",
	"email.com",
	"your-email.com",
	"username@",
	"@domain",
	"example@example",
}

// Validate reports whether candidate is a usable contact address.
//
// A candidate is rejected when it has no "@", does not match the
// local@domain.tld shape, contains a placeholder fragment, or has a
// phone-number-shaped local part.
func Validate(candidate string) bool {
	if !strings.Contains(candidate, "@") {
		return false
	}
	if !emailPattern.MatchString(candidate) {
		return false
	}

	if IsFalsePositive(candidate) {
		return false
	}

	local, _, _ := strings.Cut(candidate, "@")
	return !phonePattern.MatchString(local)
}

// IsFalsePositive reports whether candidate contains a placeholder fragment.
func IsFalsePositive(candidate string) bool {
	lower := strings.ToLower(candidate)
	for _, fp := range falsePositives {
		if strings.Contains(lower, fp) {
			return true
		}
	}
	return false
}
