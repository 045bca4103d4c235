package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	emailFullRe   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	emailSearchRe = regexp.MustCompile(`\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`)
)

var (
	locationUpper = setOf("usa", "uk", "uae", "nyc", "la", "sf", "dc")
	locationLower = setOf("and", "or", "of", "the", "in", "at")
	nameSuffixes  = setOf("jr", "sr", "ii", "iii", "iv")
	nameTitles    = setOf("dr", "mr", "mrs", "ms", "prof")
	textLower     = setOf("and", "or", "of", "the", "in", "at", "to", "for", "with", "by")
)

// textAcronyms maps the lowercase form to the canonical spelling.
var textAcronyms = func() map[string]string {
	m := make(map[string]string)
	for _, a := range []string{"CEO", "CTO", "CFO", "COO", "VP", "SVP", "EVP", "HR", "IT", "AI", "ML", "API", "SaaS", "B2B", "B2C"} {
		m[strings.ToLower(a)] = a
	}
	return m
}()

func setOf(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

func has(set map[string]struct{}, w string) bool {
	_, ok := set[w]
	return ok
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(word string) string {
	if word == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(word)
	return string(unicode.ToTitle(r)) + strings.ToLower(word[size:])
}

// FormatEmail lowercases and validates an email, extracting an embedded
// address from surrounding text when the whole value is not one.
func FormatEmail(s string) string {
	email := strings.ToLower(strings.TrimSpace(s))
	if email == "" {
		return ""
	}
	if emailFullRe.MatchString(email) {
		return email
	}
	if m := emailSearchRe.FindString(email); m != "" {
		return strings.ToLower(m)
	}
	return ""
}

// FormatPhone renders US numbers as (ddd) ddd-dddd and keeps other
// international numbers as +digits.
func FormatPhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	phone := b.String()
	if phone == "" {
		return ""
	}

	international := strings.HasPrefix(phone, "+")
	digits := strings.ReplaceAll(phone, "+", "")

	if international {
		switch {
		case len(digits) == 11 && digits[0] == '1':
			return usWithCountry(digits)
		case len(digits) >= 10:
			return "+" + digits
		}
		// Short international numbers are kept as stripped.
		return phone
	}

	switch {
	case len(digits) == 10:
		return fmt.Sprintf("(%s) %s-%s", digits[:3], digits[3:6], digits[6:])
	case len(digits) == 11 && digits[0] == '1':
		return usWithCountry(digits)
	case len(digits) >= 7:
		return digits
	}
	return ""
}

func usWithCountry(digits string) string {
	return fmt.Sprintf("+1 (%s) %s-%s", digits[1:4], digits[4:7], digits[7:])
}

// FormatURL adds a missing scheme and applies accept, returning "" when the
// URL is rejected. A nil accept keeps every non-empty URL.
func FormatURL(s string, accept func(string) bool) string {
	u := strings.TrimSpace(s)
	if u == "" {
		return ""
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	if accept != nil && !accept(u) {
		return ""
	}
	return u
}

// FormatLocation title-cases an address while keeping well-known
// abbreviations upper case and connectors lower case.
func FormatLocation(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		lower := strings.ToLower(w)
		switch {
		case has(locationUpper, lower):
			words[i] = strings.ToUpper(w)
		case has(locationLower, lower):
			words[i] = lower
		default:
			words[i] = capitalize(w)
		}
	}
	return strings.Join(words, " ")
}

// FormatName title-cases a person's name, handling suffixes, honorifics and
// apostrophe or hyphen compounds.
func FormatName(s string) string {
	parts := strings.Fields(s)
	for i, p := range parts {
		lower := strings.ToLower(p)
		switch {
		case has(nameSuffixes, lower):
			parts[i] = strings.ToUpper(p)
		case has(nameTitles, lower):
			parts[i] = capitalize(p) + "."
		case strings.ContainsAny(p, "'-"):
			parts[i] = capitalizeSegments(p)
		default:
			parts[i] = capitalize(p)
		}
	}
	return strings.Join(parts, " ")
}

func capitalizeSegments(word string) string {
	var b strings.Builder
	start := 0
	for i, r := range word {
		if r == '\'' || r == '-' {
			b.WriteString(capitalize(word[start:i]))
			b.WriteRune(r)
			start = i + 1
		}
	}
	b.WriteString(capitalize(word[start:]))
	return b.String()
}

// FormatText collapses whitespace and title-cases free text such as company
// names and job titles. The first word is always capitalized, even when it
// is an acronym.
func FormatText(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		lower := strings.ToLower(w)
		if i == 0 {
			words[i] = capitalize(w)
			continue
		}
		if acronym, ok := textAcronyms[lower]; ok {
			words[i] = acronym
			continue
		}
		if has(textLower, lower) {
			words[i] = lower
			continue
		}
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

// FormatRating renders a numeric rating with one decimal place.
func FormatRating(v any) string {
	if !truthy(v) {
		return ""
	}
	f, ok := number(v)
	if !ok {
		return ""
	}
	return strconv.FormatFloat(f, 'f', 1, 64)
}

// FormatCount renders an integer count.
func FormatCount(v any) string {
	if !truthy(v) {
		return ""
	}
	n, ok := integer(v)
	if !ok {
		return ""
	}
	return strconv.FormatInt(n, 10)
}

// FormatHours joins a list of opening-hours entries with "; ".
func FormatHours(v any) string {
	if !truthy(v) {
		return ""
	}
	list, ok := v.([]any)
	if !ok {
		return strings.TrimSpace(stringify(v))
	}
	parts := make([]string, 0, len(list))
	for _, item := range list {
		if !truthy(item) {
			continue
		}
		if m, ok := item.(map[string]any); ok {
			day, hours := stringify(m["day"]), stringify(m["hours"])
			if day != "" && hours != "" {
				parts = append(parts, day+": "+hours)
				continue
			}
		}
		parts = append(parts, stringify(item))
	}
	return strings.Join(parts, "; ")
}

// FormatPriceLevel renders numeric price levels as repeated "$".
func FormatPriceLevel(v any) string {
	if !truthy(v) {
		return ""
	}
	if isNumeric(v) {
		n, ok := integer(v)
		if !ok || n <= 0 {
			return ""
		}
		return strings.Repeat("$", int(min(n, 10)))
	}
	return strings.TrimSpace(stringify(v))
}

// FormatCoordinates renders a lat/lng mapping as "lat, lng".
func FormatCoordinates(v any) string {
	if !truthy(v) {
		return ""
	}
	if m, ok := v.(map[string]any); ok {
		lat := firstTruthy(m, "lat", "latitude")
		lng := firstTruthy(m, "lng", "longitude")
		if lat != nil && lng != nil {
			return stringify(lat) + ", " + stringify(lng)
		}
	}
	return strings.TrimSpace(stringify(v))
}

func firstTruthy(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && truthy(v) {
			return v
		}
	}
	return nil
}
