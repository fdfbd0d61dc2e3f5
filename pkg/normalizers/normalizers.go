// Package normalizers canonicalizes raw identity fields so that both sides of a
// comparison live in the same space. Every function here is total: bad input
// degrades to the empty string, which never matches anything.
package normalizers

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer is a function that normalizes a string value
type Normalizer func(string) string

// registry holds all registered normalizers
var registry = make(map[string]Normalizer)

func init() {
	Register("lowercase", Lowercase)
	Register("trim", Trim)
	Register("nphone", NormalizePhone)
	Register("nemail", NormalizeEmail)
	Register("nname", NormalizeName)
	Register("nbusiness", NormalizeBusinessName)
	Register("naddress", NormalizeAddress)
	Register("nstate", NormalizeState)
	Register("nzip", NormalizeZipCode)
	Register("digits_only", DigitsOnly)
}

// Register adds a normalizer to the registry
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// Lowercase converts string to lowercase
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Trim removes leading and trailing whitespace
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// DigitsOnly keeps only digit characters
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// NormalizePhone reduces a US phone number to its 10 digits. A leading country
// code 1 is dropped from 11-digit input. Anything that does not leave exactly
// 10 digits yields "".
func NormalizePhone(s string) string {
	digits := DigitsOnly(s)
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return ""
	}
	return digits
}

// FormatPhone renders a phone number as (XXX) XXX-XXXX, or returns the input
// unchanged when it does not normalize.
func FormatPhone(s string) string {
	digits := NormalizePhone(s)
	if digits == "" {
		return s
	}
	return "(" + digits[:3] + ") " + digits[3:6] + "-" + digits[6:]
}

// NormalizeEmail normalizes an email address (lowercase, trim)
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeZipCode returns the 5-digit ZIP prefix of a US zip or zip+4
func NormalizeZipCode(s string) string {
	digits := DigitsOnly(s)
	if len(digits) == 5 || len(digits) == 9 {
		return digits[:5]
	}
	return ""
}

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var nameSuffixes = map[string]struct{}{
	"jr": {}, "sr": {}, "ii": {}, "iii": {}, "iv": {}, "phd": {}, "md": {}, "dds": {}, "esq": {},
}

var businessSuffixes = map[string]struct{}{
	"llc": {}, "inc": {}, "incorporated": {}, "co": {}, "corp": {}, "corporation": {},
	"ltd": {}, "company": {}, "pllc": {}, "lp": {}, "llp": {},
}

// NormalizeName normalizes a person's name for matching
// - Lowercase, accents stripped
// - Punctuation dropped, whitespace collapsed
// - Trailing generational/professional suffixes (Jr., III, PhD) removed
func NormalizeName(s string) string {
	return dropTrailing(words(s), nameSuffixes)
}

// NormalizeBusinessName is NormalizeName plus removal of trailing legal-entity
// designators, so "Acme Plumbing, LLC" and "Acme Plumbing" compare equal.
func NormalizeBusinessName(s string) string {
	tokens := strings.Fields(NormalizeName(s))
	return dropTrailing(tokens, businessSuffixes)
}

func dropTrailing(tokens []string, suffixes map[string]struct{}) string {
	for len(tokens) > 1 {
		if _, ok := suffixes[tokens[len(tokens)-1]]; !ok {
			break
		}
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}

// words lowercases, strips accents and punctuation, and splits on whitespace.
// Punctuation inside a token is removed ("o'brien" -> "obrien"), while '&'
// and '/' separate tokens.
func words(s string) []string {
	folded, _, err := transform.String(stripAccents, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}

	var b strings.Builder
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r), r == '&', r == '/', r == '-', r == ',':
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

var addressTokens = map[string]string{
	"street": "st", "str": "st",
	"avenue": "ave", "av": "ave", "aven": "ave",
	"boulevard": "blvd", "boul": "blvd",
	"drive": "dr", "drv": "dr",
	"road": "rd",
	"lane": "ln",
	"court": "ct",
	"circle": "cir",
	"place": "pl",
	"parkway": "pkwy",
	"highway": "hwy",
	"terrace": "ter",
	"square": "sq",
	"trail": "trl",
	"apartment": "apt",
	"suite": "ste",
	"building": "bldg",
	"floor": "fl",
	"north": "n", "south": "s", "east": "e", "west": "w",
	"northeast": "ne", "northwest": "nw", "southeast": "se", "southwest": "sw",
}

var unitMarker = regexp.MustCompile(`^#(\w+)$`)

// NormalizeAddress canonicalizes a street address: lowercase, punctuation
// stripped, whitespace collapsed and every street-suffix, unit or directional
// spelling mapped to a single abbreviation token ("Street" and "St." both
// become "st").
func NormalizeAddress(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if m := unitMarker.FindStringSubmatch(f); m != nil {
			out = append(out, "apt", m[1])
			continue
		}
		for _, tok := range words(f) {
			if canon, ok := addressTokens[tok]; ok {
				tok = canon
			}
			out = append(out, tok)
		}
	}
	return strings.Join(out, " ")
}
