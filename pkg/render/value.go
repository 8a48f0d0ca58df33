// Package render classifies raw record values for display.
package render

import (
	"fmt"
	"regexp"
)

// Kind describes how a single record value should be rendered.
type Kind int

const (
	Plain   Kind = iota
	Link         // value looks like an external URL
	Missing      // empty, null, or the literal string "undefined"
)

// MissingPlaceholder is displayed (and highlighted) for missing values to
// flag bad data.
const MissingPlaceholder = "undefined"

var urlPattern = regexp.MustCompile(`^(https?|ftp)://\S+$`)

// ClassifyValue decides how a record value should be displayed.
func ClassifyValue(v any) Kind {
	if v == nil {
		return Missing
	}
	s, ok := v.(string)
	if !ok {
		s = fmt.Sprintf("%v", v)
	}
	if s == "" || s == "undefined" {
		return Missing
	}
	if urlPattern.MatchString(s) {
		return Link
	}
	return Plain
}

// DisplayValue returns the string to show for a value, substituting the
// placeholder for missing data.
func DisplayValue(v any) string {
	if ClassifyValue(v) == Missing {
		return MissingPlaceholder
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
