package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePack = `
name: team-rules
rules:
  - name: console-log
    category: quality
    type: debug_statement
    severity: low
    pattern: 'console\.log\('
    message: "console.log left in code ({count})"
    remediation: Use the project logger
  - name: internal-host
    category: quality
    type: hardcoded_value
    severity: LOW
    pattern: '[a-z0-9.-]+\.corp\.example\.com'
    exclude: '^docs\.'
  - name: lock-without-unlock
    category: quality
    type: potential_deadlock
    severity: HIGH
    pattern: '\.Lock\(\)'
    guards: ['\.Unlock\(\)']
`

func TestParsePack(t *testing.T) {
	rules, err := ParsePack([]byte(samplePack))
	require.NoError(t, err)
	require.Len(t, rules, 3)

	c, err := NewCatalog(DefaultRules(), WithRules(rules...))
	require.NoError(t, err)

	types := scanTypes(c, `console.log(x); fetch("http://api.corp.example.com"); mu.Lock()`, CategoryQuality)
	assert.Contains(t, types, "debug_statement")
	assert.Contains(t, types, "potential_deadlock")

	log, ok := c.Lookup("console-log")
	require.True(t, ok)
	assert.Equal(t, SeverityLow, log.Severity)
	assert.Equal(t, "console.log left in code (1)", log.Describe(1))

	assert.Empty(t, c.Scan(`see docs.corp.example.com; mu.Lock(); mu.Unlock()`, CategoryQuality))
}

func TestParsePack_Errors(t *testing.T) {
	tests := map[string]string{
		"bad yaml":     "rules: [",
		"bad severity": "rules:\n  - {name: a, category: quality, type: t, severity: urgent, pattern: x}",
		"no pattern":   "rules:\n  - {name: a, category: quality, type: t, severity: LOW}",
		"bad regex":    "rules:\n  - {name: a, category: quality, type: t, severity: LOW, pattern: '('}",
		"bad category": "rules:\n  - {name: a, category: style, type: t, severity: LOW, pattern: x}",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePack([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadPack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(samplePack), 0o600))

	rules, err := LoadPack(path)
	require.NoError(t, err)
	assert.Len(t, rules, 3)

	_, err = LoadPack(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
