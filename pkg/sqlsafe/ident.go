// Package sqlsafe guards the dynamic SQL paths that query scraped source
// tables. Table, column, and bucket names arrive from request paths and
// query strings, so they are validated before they are ever interpolated
// into a statement, and free-text values are screened with libinjection.
package sqlsafe

import (
	"fmt"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/dataloom-io/review-engine/pkg/apperrors"
)

// maxIdentLen matches the PostgreSQL identifier limit.
const maxIdentLen = 63

// ValidIdent reports whether name is a safe unquoted-style identifier:
// lowercase letters, digits, and underscores, not starting with a digit.
func ValidIdent(name string) bool {
	if name == "" || len(name) > maxIdentLen {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// QuoteIdent validates name and returns it double-quoted for interpolation
// into a dynamic statement.
func QuoteIdent(name string) (string, error) {
	if !ValidIdent(name) {
		return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidIdent, name)
	}
	return `"` + name + `"`, nil
}

// QuoteIdents validates and quotes every name, preserving order.
func QuoteIdents(names []string) ([]string, error) {
	quoted := make([]string, 0, len(names))
	for _, n := range names {
		q, err := QuoteIdent(n)
		if err != nil {
			return nil, err
		}
		quoted = append(quoted, q)
	}
	return quoted, nil
}

// CheckText screens a free-text value (comment bodies, filter values) for
// SQL injection patterns. Values always travel as bind parameters, so this
// is a second line of defense that also keeps hostile text out of stored
// comments.
func CheckText(value string) error {
	if isSQLi, fingerprint := libinjection.IsSQLi(value); isSQLi {
		return fmt.Errorf("%w (fingerprint %s)", apperrors.ErrSuspectInput, string(fingerprint))
	}
	return nil
}

// JoinQuoted validates and quotes names, then joins them with sep.
func JoinQuoted(names []string, sep string) (string, error) {
	quoted, err := QuoteIdents(names)
	if err != nil {
		return "", err
	}
	return strings.Join(quoted, sep), nil
}
