package rules

import (
	"regexp"
	"strings"
)

// RegexMatcher reports every match of a regular expression. When Group is
// positive the reported text and offsets are those of that capture group.
type RegexMatcher struct {
	re    *regexp.Regexp
	group int
}

// NewRegexMatcher compiles pattern. group selects a capture group, or 0
// for the whole match.
func NewRegexMatcher(pattern string, group int) (*RegexMatcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	if group < 0 || group > re.NumSubexp() {
		return nil, ErrInvalidRule
	}
	return &RegexMatcher{re: re, group: group}, nil
}

// Match implements Matcher.
func (m *RegexMatcher) Match(text string) []Match {
	var out []Match
	for _, loc := range m.re.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[2*m.group], loc[2*m.group+1]
		if start < 0 {
			continue
		}
		out = append(out, newMatch(text, start, end))
	}
	return out
}

// FilterMatcher reports matches of an inner matcher whose text does not
// match an exclusion pattern.
type FilterMatcher struct {
	inner   Matcher
	exclude *regexp.Regexp
}

// NewFilterMatcher wraps inner, dropping matches that match exclude.
func NewFilterMatcher(inner Matcher, exclude string) (*FilterMatcher, error) {
	re, err := regexp.Compile(exclude)
	if err != nil {
		return nil, err
	}
	return &FilterMatcher{inner: inner, exclude: re}, nil
}

// Match implements Matcher.
func (m *FilterMatcher) Match(text string) []Match {
	var out []Match
	for _, hit := range m.inner.Match(text) {
		if !m.exclude.MatchString(hit.Text) {
			out = append(out, hit)
		}
	}
	return out
}

// UnguardedMatcher reports trigger matches only when none of the guard
// patterns occur anywhere in the text. It models "acquire without release"
// checks such as setInterval without clearInterval.
type UnguardedMatcher struct {
	trigger Matcher
	guards  []*regexp.Regexp
}

// NewUnguardedMatcher builds a matcher from a trigger and guard patterns.
func NewUnguardedMatcher(trigger Matcher, guards ...string) (*UnguardedMatcher, error) {
	m := &UnguardedMatcher{trigger: trigger}
	for _, g := range guards {
		re, err := regexp.Compile(g)
		if err != nil {
			return nil, err
		}
		m.guards = append(m.guards, re)
	}
	return m, nil
}

// Match implements Matcher.
func (m *UnguardedMatcher) Match(text string) []Match {
	for _, g := range m.guards {
		if g.MatchString(text) {
			return nil
		}
	}
	return m.trigger.Match(text)
}

func newMatch(text string, start, end int) Match {
	return Match{
		Text:  text[start:end],
		Start: start,
		End:   end,
		Line:  strings.Count(text[:start], "\n") + 1,
	}
}

func mustRegex(pattern string, group int) *RegexMatcher {
	m, err := NewRegexMatcher(pattern, group)
	if err != nil {
		panic("rules: bad built-in pattern " + pattern + ": " + err.Error())
	}
	return m
}

func mustFilter(inner Matcher, exclude string) *FilterMatcher {
	m, err := NewFilterMatcher(inner, exclude)
	if err != nil {
		panic("rules: bad built-in exclusion " + exclude + ": " + err.Error())
	}
	return m
}

func mustUnguarded(trigger Matcher, guards ...string) *UnguardedMatcher {
	m, err := NewUnguardedMatcher(trigger, guards...)
	if err != nil {
		panic("rules: bad built-in guard: " + err.Error())
	}
	return m
}
