package cacheaside

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// entityNames derives the singular and plural snake_case names of T, e.g.
// Account gives "account" and "accounts".
func entityNames[T any]() (singular, plural string) {
	name := reflect.TypeFor[T]().Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	singular = snakeCase(name)
	if singular == "" {
		singular = "entity"
	}
	return singular, inflection.Plural(singular)
}

// snakeCase lowercases s and separates words with underscores. Anything that
// is not a letter or digit becomes a separator, so the result is safe to use
// in cache keys.
func snakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(runes) + 4)

	sep := func() {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
			b.WriteByte('_')
		}
	}

	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					sep()
				}
			}
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsLower(r), unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			sep()
		}
	}
	return strings.Trim(b.String(), "_")
}
