package database

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrReadOnlyViolation is returned for statements that could modify data or schema.
var ErrReadOnlyViolation = errors.New("statement is not read-only")

// forbiddenTokens are keywords and functions that never appear in an aggregation
// query. SELECT ... INTO writes files or user variables, and the lock and sleep
// functions hold server resources. Generated queries quote every identifier, so a
// column named like one of these never trips the check.
var forbiddenTokens = map[string]struct{}{
	"CREATE":            {},
	"INSERT":            {},
	"UPDATE":            {},
	"DELETE":            {},
	"DROP":              {},
	"ALTER":             {},
	"MERGE":             {},
	"TRUNCATE":          {},
	"GRANT":             {},
	"REVOKE":            {},
	"RENAME":            {},
	"CALL":              {},
	"LOAD":              {},
	"HANDLER":           {},
	"LOCK":              {},
	"INTO":              {},
	"OUTFILE":           {},
	"DUMPFILE":          {},
	"GET_LOCK":          {},
	"RELEASE_LOCK":      {},
	"RELEASE_ALL_LOCKS": {},
	"IS_FREE_LOCK":      {},
	"IS_USED_LOCK":      {},
	"SLEEP":             {},
	"BENCHMARK":         {},
}

// CheckReadOnly rejects any statement that is not a single SELECT (or WITH ... SELECT)
// or that contains a DDL/DML keyword outside of quoted literals and identifiers.
func CheckReadOnly(stmt string) error {
	tokens, statements := tokenize(stmt)
	if len(tokens) == 0 {
		return fmt.Errorf("%w: empty statement", ErrReadOnlyViolation)
	}
	if statements > 1 {
		return fmt.Errorf("%w: multiple statements", ErrReadOnlyViolation)
	}
	if first := tokens[0]; first != "SELECT" && first != "WITH" {
		return fmt.Errorf("%w: statement starts with %s", ErrReadOnlyViolation, first)
	}
	for _, tok := range tokens {
		if _, bad := forbiddenTokens[tok]; bad {
			return fmt.Errorf("%w: contains %s", ErrReadOnlyViolation, tok)
		}
	}
	return nil
}

// tokenize returns the upper-cased bare words of stmt, skipping comments, string
// literals and quoted identifiers, and counts the non-empty statements.
func tokenize(stmt string) ([]string, int) {
	var (
		tokens     []string
		word       strings.Builder
		statements int
		current    bool
	)
	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, strings.ToUpper(word.String()))
			word.Reset()
			current = true
		}
	}

	r := []rune(stmt)
	for i := 0; i < len(r); i++ {
		c := r[i]
		switch {
		case c == '-' && i+1 < len(r) && r[i+1] == '-', c == '#':
			flush()
			for i < len(r) && r[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(r) && r[i+1] == '*':
			flush()
			i += 2
			for i+1 < len(r) && !(r[i] == '*' && r[i+1] == '/') {
				i++
			}
			i++
		case c == '\'' || c == '"' || c == '`':
			flush()
			current = true
			quote := c
			i++
			for i < len(r) {
				if r[i] == '\\' && quote != '`' {
					i += 2
					continue
				}
				if r[i] == quote {
					if i+1 < len(r) && r[i+1] == quote {
						i += 2
						continue
					}
					break
				}
				i++
			}
		case c == ';':
			flush()
			if current {
				statements++
				current = false
			}
		case unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_':
			word.WriteRune(c)
		default:
			flush()
			if !unicode.IsSpace(c) {
				current = true
			}
		}
	}
	flush()
	if current {
		statements++
	}
	return tokens, statements
}
