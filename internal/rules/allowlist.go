package rules

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// Allowlist suppresses known-safe matches such as documentation examples.
// The file format follows gitleaks:
//
//	[allowlist]
//	description = "test fixtures"
//	regexes = ['''EXAMPLE''', '''^dummy-''']
//	stopwords = ["changeme"]
type Allowlist struct {
	Description string
	regexes     []*regexp.Regexp
	stopwords   []string
}

// LoadAllowlist reads a TOML allowlist. A missing file yields an empty
// allowlist.
func LoadAllowlist(path string) (*Allowlist, error) {
	var doc struct {
		Allowlist struct {
			Description string   `toml:"description"`
			Regexes     []string `toml:"regexes"`
			Stopwords   []string `toml:"stopwords"`
		} `toml:"allowlist"`
	}

	if _, err := toml.DecodeFile(path, &doc); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Allowlist{}, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAllowlist, path, err)
	}
	return NewAllowlist(doc.Allowlist.Description, doc.Allowlist.Regexes, doc.Allowlist.Stopwords)
}

// NewAllowlist compiles regexes. Invalid patterns are rejected.
func NewAllowlist(description string, regexes, stopwords []string) (*Allowlist, error) {
	a := &Allowlist{Description: description, stopwords: stopwords}
	for _, p := range regexes {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: regex %q: %v", ErrInvalidAllowlist, p, err)
		}
		a.regexes = append(a.regexes, re)
	}
	return a, nil
}

// Allowed reports whether text is allowlisted.
func (a *Allowlist) Allowed(text string) bool {
	if a == nil {
		return false
	}
	for _, re := range a.regexes {
		if re.MatchString(text) {
			return true
		}
	}
	for _, w := range a.stopwords {
		if w != "" && strings.Contains(strings.ToLower(text), strings.ToLower(w)) {
			return true
		}
	}
	return false
}

// Len returns the number of patterns and stopwords.
func (a *Allowlist) Len() int {
	if a == nil {
		return 0
	}
	return len(a.regexes) + len(a.stopwords)
}
