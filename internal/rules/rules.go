// Package rules decides which track (if any) should play for a given
// context. Matching is pure: no side effects, first matching rule wins.
package rules

import "path"

// Rule pairs a path.Match pattern with a track reference (preset name or
// track path).
type Rule struct {
	Pattern string
	Track   string
}

// Matcher evaluates an ordered rule list.
type Matcher struct {
	rules []Rule
}

// NewMatcher creates a matcher. Rule order is match priority.
func NewMatcher(rules []Rule) *Matcher {
	return &Matcher{rules: rules}
}

// FindMatch returns the track reference for the first rule matching the
// context path, or "" when nothing matches.
func (m *Matcher) FindMatch(context string) string {
	for _, r := range m.rules {
		if ok, err := path.Match(r.Pattern, context); err == nil && ok {
			return r.Track
		}
	}
	return ""
}

// Len returns the number of rules.
func (m *Matcher) Len() int {
	return len(m.rules)
}
