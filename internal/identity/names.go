package identity

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Anonymous is shown when no usable display name exists
const Anonymous = "Anonymous"

var uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// NormalizeDisplayName turns a stored display name into something fit to show.
//
//   - empty or whitespace → "Anonymous"
//   - a UUID (an id leaked into the name column) → "Anonymous"
//   - an email address (contains "@" and ".") → the capitalized local part when it is longer
//     than 2 characters and has no "+", otherwise "Anonymous"
//   - anything else is returned trimmed
func NormalizeDisplayName(raw string) string {
	name := strings.TrimSpace(raw)
	if name == "" || uuidPattern.MatchString(name) {
		return Anonymous
	}
	if strings.Contains(name, "@") && strings.Contains(name, ".") {
		local := name[:strings.Index(name, "@")]
		if utf8.RuneCountInString(local) <= 2 || strings.Contains(local, "+") {
			return Anonymous
		}
		return capitalize(local)
	}
	return name
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// DisplayNameOf picks the best raw name known for v and normalizes it
func DisplayNameOf(v *Viewer, profileName string) string {
	if !v.Authenticated() {
		return Anonymous
	}
	for _, candidate := range []string{profileName, v.DisplayName, v.Email} {
		if strings.TrimSpace(candidate) != "" {
			return NormalizeDisplayName(candidate)
		}
	}
	return Anonymous
}
