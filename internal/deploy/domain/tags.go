package domain

import (
	"strings"
)

// TagExpression is an immutable boolean predicate over a release's tag set.
type TagExpression interface {
	// Matches reports whether the given tag set satisfies the expression.
	Matches(tags []string) bool
	// And combines this expression with another; the result matches only
	// when both do. MatchAll is the identity element of And.
	And(other TagExpression) TagExpression
	String() string
}

// MatchAll returns the wildcard expression that matches every tag set,
// including the empty set.
func MatchAll() TagExpression { return matchAll{} }

// ParseTagExpression parses a textual tag expression. The grammar is either
// the wildcard "*" or a comma/space separated list of literal tags that are
// implicitly ANDed. Empty tokens and wildcards mixed with literals are
// malformed.
func ParseTagExpression(expr string) (TagExpression, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return nil, &ParseError{Expr: expr, Reason: "empty expression"}
	}
	if trimmed == "*" {
		return matchAll{}, nil
	}

	var required []string
	for _, part := range strings.Split(trimmed, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, &ParseError{Expr: expr, Reason: "empty token"}
		}
		for _, tag := range strings.Fields(part) {
			if strings.Contains(tag, "*") {
				return nil, &ParseError{Expr: expr, Reason: "wildcard cannot be combined with literal tags"}
			}
			required = append(required, tag)
		}
	}
	return tagList{required: required}, nil
}

// matchAll is the wildcard expression.
type matchAll struct{}

func (matchAll) Matches([]string) bool { return true }

func (matchAll) And(other TagExpression) TagExpression { return other }

func (matchAll) String() string { return "*" }

// tagList requires every listed tag to be present (logical AND, exact
// case-sensitive match).
type tagList struct {
	required []string
}

func (t tagList) Matches(tags []string) bool {
	for _, want := range t.required {
		found := false
		for _, have := range tags {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (t tagList) And(other TagExpression) TagExpression {
	if _, ok := other.(matchAll); ok {
		return t
	}
	return conjunction{a: t, b: other}
}

func (t tagList) String() string { return strings.Join(t.required, ",") }

// conjunction is the AND of two sub-expressions.
type conjunction struct {
	a, b TagExpression
}

func (c conjunction) Matches(tags []string) bool {
	return c.a.Matches(tags) && c.b.Matches(tags)
}

func (c conjunction) And(other TagExpression) TagExpression {
	if _, ok := other.(matchAll); ok {
		return c
	}
	return conjunction{a: c, b: other}
}

func (c conjunction) String() string {
	return "(" + c.a.String() + ") and (" + c.b.String() + ")"
}
