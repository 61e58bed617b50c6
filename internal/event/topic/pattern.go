package topic

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Wildcard matches any run of characters (including none) in a glob pattern.
const Wildcard = "*"

// ErrInvalidPattern is returned when a pattern cannot be compiled.
var ErrInvalidPattern = errors.New("invalid topic pattern")

// Pattern selects topics. Subscriptions registered with a Pattern receive
// every event whose topic the pattern matches.
type Pattern interface {
	// Match returns true if the topic is selected by the pattern.
	Match(t Topic) bool

	// String returns the source form of the pattern.
	String() string
}

// exactPattern matches a single topic.
type exactPattern Topic

// Exact returns a pattern that matches only the given topic.
func Exact(t Topic) Pattern {
	return exactPattern(t)
}

func (p exactPattern) Match(t Topic) bool { return Topic(p) == t }
func (p exactPattern) String() string     { return string(p) }

// globPattern matches topics against literal parts separated by wildcards.
type globPattern struct {
	source string
	parts  []string
}

// Glob compiles a wildcard pattern. "*" matches any run of characters, so
// "order.*:change" matches "order.address:change" and "order.payment:change",
// "basket-*" is a prefix match and "*:change" a suffix match. Globs are
// anchored at both ends: "order.*:change" does not match
// "order.address:changed". Use Regexp with `^order\..*:change` for the
// form that is open at the end.
func Glob(pattern string) (Pattern, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%w: empty glob", ErrInvalidPattern)
	}
	if !strings.Contains(pattern, Wildcard) {
		return Exact(Topic(pattern)), nil
	}
	return &globPattern{
		source: pattern,
		parts:  strings.Split(pattern, Wildcard),
	}, nil
}

// MustGlob is like Glob but panics if the pattern is invalid.
func MustGlob(pattern string) Pattern {
	p, err := Glob(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// Match implements Pattern.
func (p *globPattern) Match(t Topic) bool {
	s := string(t)

	// First part is anchored at the start, last part at the end.
	first := p.parts[0]
	if !strings.HasPrefix(s, first) {
		return false
	}
	s = s[len(first):]

	last := p.parts[len(p.parts)-1]
	if len(s) < len(last) || !strings.HasSuffix(s, last) {
		return false
	}
	s = s[:len(s)-len(last)]

	for _, part := range p.parts[1 : len(p.parts)-1] {
		idx := strings.Index(s, part)
		if idx < 0 {
			return false
		}
		s = s[idx+len(part):]
	}
	return true
}

// String implements Pattern.
func (p *globPattern) String() string {
	return p.source
}

// regexpPattern matches topics with a regular expression.
type regexpPattern struct {
	re *regexp.Regexp
}

// Regexp compiles a regular-expression pattern. The expression is not
// implicitly anchored: "^order\\..*:change" matches the same topics as the
// glob "order.*:change*".
func Regexp(expr string) (Pattern, error) {
	if expr == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidPattern)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return &regexpPattern{re: re}, nil
}

// MustRegexp is like Regexp but panics if the expression is invalid.
func MustRegexp(expr string) Pattern {
	p, err := Regexp(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// Match implements Pattern.
func (p *regexpPattern) Match(t Topic) bool {
	return p.re.MatchString(string(t))
}

// String implements Pattern.
func (p *regexpPattern) String() string {
	return p.re.String()
}
