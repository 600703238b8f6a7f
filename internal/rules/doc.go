// Package rules holds the detection rule catalog used by the validator.
//
// A Rule pairs a Matcher with a category, violation type, severity and
// remediation text. Matchers are pure functions over text and are compiled
// once; a Catalog is immutable after construction and safe for concurrent
// use.
//
// The built-in catalog (DefaultRules) covers hardcoded secrets, SQL
// injection, XSS, command injection, performance anti-patterns and the
// quality checks run after execution. It can be extended with YAML rule
// packs (LoadPack), narrowed with WithDisabled, filtered with a TOML
// allowlist (LoadAllowlist) and augmented with the gitleaks rule set
// (NewGitleaksRule).
//
// Detection is textual. Expect false positives and negatives.
package rules
