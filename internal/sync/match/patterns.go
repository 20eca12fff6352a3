// Package match decides which tracked paths take part in a sync run.
package match

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dl-alexandre/gitdrive/internal/utils"
)

// NegationBase selects what a pattern list starting with "!" applies to
type NegationBase string

const (
	// IncludeAll prepends an implicit "/**" so "!x" means "everything but x"
	IncludeAll NegationBase = "include-all"
	// RequireExplicit rejects lists whose first pattern is a negation
	RequireExplicit NegationBase = "require-explicit"
)

// Separator splits a GIT_GLOB value
const Separator = "|"

type rule struct {
	negate  bool
	pattern string
}

// Matcher evaluates an ordered include/exclude glob list.
//
// Paths and patterns are compared in absolute form ("/a/b.txt"). Every rule is
// tried in order: a matching positive pattern selects the path, a matching
// "!" pattern deselects it, and the last verdict wins. An empty pattern list
// selects everything.
type Matcher struct {
	spec  string
	rules []rule
}

// ParseNegationBase validates a configured policy name; "" means IncludeAll
func ParseNegationBase(value string) (NegationBase, error) {
	switch NegationBase(strings.ToLower(strings.TrimSpace(value))) {
	case "", IncludeAll:
		return IncludeAll, nil
	case RequireExplicit:
		return RequireExplicit, nil
	}
	return "", utils.Errorf(utils.ErrCodeConfiguration,
		"invalid glob negation base %q (must be %q or %q)", value, IncludeAll, RequireExplicit)
}

// New compiles spec. Invalid glob syntax and, under RequireExplicit, a leading
// negation are configuration errors.
func New(spec string, base NegationBase) (*Matcher, error) {
	m := &Matcher{spec: spec}

	var patterns []string
	for _, p := range strings.Split(spec, Separator) {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	if len(patterns) == 0 {
		return m, nil
	}

	if strings.HasPrefix(patterns[0], "!") {
		switch base {
		case RequireExplicit:
			return nil, utils.Errorf(utils.ErrCodeConfiguration,
				"glob %q starts with a negation; add an explicit include pattern first", spec)
		default:
			m.rules = append(m.rules, rule{pattern: "/**"})
		}
	}

	for _, p := range patterns {
		r := rule{}
		if strings.HasPrefix(p, "!") {
			r.negate = true
			p = strings.TrimSpace(p[1:])
		}
		r.pattern = absolute(p)
		if !doublestar.ValidatePattern(r.pattern) {
			return nil, utils.Errorf(utils.ErrCodeConfiguration, "invalid glob pattern %q", p)
		}
		m.rules = append(m.rules, r)
	}

	return m, nil
}

// Matches reports whether path participates in the sync
func (m *Matcher) Matches(path string) bool {
	if m == nil || len(m.rules) == 0 {
		return true
	}
	path = absolute(path)

	selected := false
	for _, r := range m.rules {
		if r.negate != selected {
			// A positive rule cannot change a selected path and a negation
			// cannot change an unselected one.
			continue
		}
		if ok, _ := doublestar.Match(r.pattern, path); ok {
			selected = !r.negate
		}
	}
	return selected
}

// Patterns returns the compiled patterns, negations prefixed with "!"
func (m *Matcher) Patterns() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.rules))
	for _, r := range m.rules {
		if r.negate {
			out = append(out, "!"+r.pattern)
		} else {
			out = append(out, r.pattern)
		}
	}
	return out
}

// String returns the patterns as they were given
func (m *Matcher) String() string {
	if m == nil {
		return ""
	}
	return m.spec
}

func absolute(p string) string {
	p = strings.TrimPrefix(p, "./")
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
