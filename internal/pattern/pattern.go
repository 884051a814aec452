// Package pattern compiles caller-supplied search expressions. Patterns use
// .NET regular expression syntax and match case-insensitively.
package pattern

import (
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"wininvestigator/internal/winerr"
)

// MatchTimeout bounds a single match so a pathological pattern cannot stall a tool call.
const MatchTimeout = 2 * time.Second

// Matcher tests strings against a compiled pattern.
type Matcher struct {
	expr string
	re   *regexp2.Regexp
}

// Compile validates expr and returns a case-insensitive matcher. Empty or
// syntactically invalid patterns are reported as InvalidArgument for param.
func Compile(param, expr string) (*Matcher, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, winerr.InvalidArgument(param, "Search pattern cannot be empty")
	}
	re, err := regexp2.Compile(expr, regexp2.IgnoreCase)
	if err != nil {
		return nil, winerr.InvalidArgument(param, "Invalid regex: "+err.Error())
	}
	re.MatchTimeout = MatchTimeout
	return &Matcher{expr: expr, re: re}, nil
}

// Optional compiles expr when non-empty and returns nil otherwise.
func Optional(param, expr string) (*Matcher, error) {
	if expr == "" {
		return nil, nil
	}
	return Compile(param, expr)
}

// Match reports whether s contains a match. A match that times out counts as no match.
func (m *Matcher) Match(s string) bool {
	if m == nil {
		return true
	}
	ok, err := m.re.MatchString(s)
	return err == nil && ok
}

// MatchAny reports whether any of the candidates match.
func (m *Matcher) MatchAny(candidates ...string) bool {
	for _, c := range candidates {
		if m.Match(c) {
			return true
		}
	}
	return false
}

func (m *Matcher) String() string {
	if m == nil {
		return ""
	}
	return m.expr
}
