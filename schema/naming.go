package schema

import (
	"strings"
	"unicode"

	pluralizer "github.com/gertd/go-pluralize"
)

// pluralizeClient is a singleton instance for consistent pluralization behavior.
var pluralizeClient = pluralizer.NewClient()

// SnakeCase converts a Go identifier to snake_case. Acronym runs stay
// together: "UserID" becomes "user_id", "HTTPPort" becomes "http_port".
func SnakeCase(name string) string {
	var sb strings.Builder
	sb.Grow(len(name) + 4)
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					sb.WriteByte('_')
				}
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// TableName derives the default table name for a struct name: snake_case,
// pluralized. "UserProfile" becomes "user_profiles". It is a convention
// helper for callers building query templates; nothing in the mapper
// depends on it.
func TableName(structName string) string {
	return pluralizeClient.Plural(SnakeCase(structName))
}
