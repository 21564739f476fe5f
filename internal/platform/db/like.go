package db

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE/ILIKE metacharacters so v matches literally under
// the default backslash escape.
func EscapeLike(v string) string {
	return likeEscaper.Replace(v)
}

// ContainsPattern builds a LIKE pattern matching v anywhere.
func ContainsPattern(v string) string {
	return "%" + EscapeLike(v) + "%"
}

// PrefixPattern builds a LIKE pattern matching values starting with v.
func PrefixPattern(v string) string {
	return EscapeLike(v) + "%"
}
