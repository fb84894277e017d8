package extract

import (
	"regexp"
	"strconv"
	"unicode/utf8"

	"github.com/nao1215/contactscan/internal/model"
)

// concatPattern matches "local" + "@" + "domain.tld" with either quote style.
var concatPattern = regexp.MustCompile(
	`['"]([a-zA-Z0-9._%+\-]+)['"]\s*\+\s*['"]@['"]\s*\+\s*['"]([a-zA-Z0-9.\-]+\.[A-Za-z]{2,})['"]`,
)

// entityPattern matches decimal numeric character references such as &#64;.
var entityPattern = regexp.MustCompile(`&#(\d+);`)

// FromObfuscatedScript recovers addresses hidden in script source.
//
// Two techniques are handled: string-literal concatenation, which is
// reassembled from its fragments in order, and decimal character entities,
// which are decoded before the text is scanned like visible text.
func FromObfuscatedScript(script string) model.EmailSet {
	emails := FromConcatenation(script)
	emails.Union(FromText(DecodeNumericEntities(script)))
	return emails
}

// FromConcatenation reassembles addresses split into concatenated literals.
func FromConcatenation(script string) model.EmailSet {
	emails := model.NewEmailSet()

	for _, m := range concatPattern.FindAllStringSubmatch(script, -1) {
		candidate := m[1] + "@" + m[2]
		if Validate(candidate) {
			emails.Add(candidate)
		}
	}

	return emails
}

// DecodeNumericEntities replaces &#NN; with the character NN.
// References that do not name a valid code point are left untouched.
func DecodeNumericEntities(text string) string {
	return entityPattern.ReplaceAllStringFunc(text, func(ref string) string {
		n, err := strconv.Atoi(ref[2 : len(ref)-1])
		if err != nil || n <= 0 || n > utf8.MaxRune {
			return ref
		}
		r := rune(n)
		if !utf8.ValidRune(r) {
			return ref
		}
		return string(r)
	})
}
