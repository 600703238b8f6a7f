package rules

import (
	"fmt"
)

// Finding groups the matches of one rule in one scan.
type Finding struct {
	Rule    Rule
	Matches []Match
}

// Catalog is an immutable, ordered set of rules.
type Catalog struct {
	rules      []Rule
	byCategory map[Category][]int
	allowlist  *Allowlist
}

// Option configures catalog construction.
type Option func(*catalogOptions)

type catalogOptions struct {
	disabled  map[string]bool
	extra     []Rule
	allowlist *Allowlist
}

// WithDisabled drops the named rules. Unknown names are ignored.
func WithDisabled(names ...string) Option {
	return func(o *catalogOptions) {
		for _, n := range names {
			o.disabled[n] = true
		}
	}
}

// WithRules appends rules after the base set, for example from a rule pack.
func WithRules(rules ...Rule) Option {
	return func(o *catalogOptions) {
		o.extra = append(o.extra, rules...)
	}
}

// WithAllowlist suppresses matches whose text matches the allowlist.
func WithAllowlist(a *Allowlist) Option {
	return func(o *catalogOptions) {
		o.allowlist = a
	}
}

// NewCatalog validates and indexes rules. Rule order within a category is
// preserved and determines scan order.
func NewCatalog(base []Rule, opts ...Option) (*Catalog, error) {
	o := &catalogOptions{disabled: map[string]bool{}}
	for _, opt := range opts {
		opt(o)
	}

	all := make([]Rule, 0, len(base)+len(o.extra))
	all = append(all, base...)
	all = append(all, o.extra...)

	c := &Catalog{
		byCategory: make(map[Category][]int),
		allowlist:  o.allowlist,
	}
	seen := make(map[string]bool, len(all))
	for _, r := range all {
		if err := r.validate(); err != nil {
			return nil, err
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRule, r.Name)
		}
		seen[r.Name] = true
		if o.disabled[r.Name] {
			continue
		}
		c.byCategory[r.Category] = append(c.byCategory[r.Category], len(c.rules))
		c.rules = append(c.rules, r)
	}
	return c, nil
}

// DefaultCatalog returns a catalog of the built-in rules.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultRules())
	if err != nil {
		panic("rules: built-in catalog invalid: " + err.Error())
	}
	return c
}

// Rules returns the rules of a category in scan order.
func (c *Catalog) Rules(cat Category) []Rule {
	idx := c.byCategory[cat]
	out := make([]Rule, len(idx))
	for i, j := range idx {
		out[i] = c.rules[j]
	}
	return out
}

// Len returns the number of enabled rules.
func (c *Catalog) Len() int {
	return len(c.rules)
}

// Lookup returns the rule with the given name.
func (c *Catalog) Lookup(name string) (Rule, bool) {
	for _, r := range c.rules {
		if r.Name == name {
			return r, true
		}
	}
	return Rule{}, false
}

// Scan runs every rule of the given categories, in the order given, and
// returns one Finding per rule with at least one non-allowlisted match.
func (c *Catalog) Scan(text string, cats ...Category) []Finding {
	var out []Finding
	for _, cat := range cats {
		for _, j := range c.byCategory[cat] {
			r := c.rules[j]
			matches := c.filter(r.Matcher.Match(text))
			if len(matches) > 0 {
				out = append(out, Finding{Rule: r, Matches: matches})
			}
		}
	}
	return out
}

func (c *Catalog) filter(matches []Match) []Match {
	if c.allowlist == nil || len(matches) == 0 {
		return matches
	}
	kept := matches[:0:0]
	for _, m := range matches {
		if !c.allowlist.Allowed(m.Text) {
			kept = append(kept, m)
		}
	}
	return kept
}
