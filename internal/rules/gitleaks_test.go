package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGitleaksRule(t *testing.T) {
	if testing.Short() {
		t.Skip("loads the full gitleaks rule set")
	}

	r, err := NewGitleaksRule()
	require.NoError(t, err)
	assert.Equal(t, TypeHardcodedSecret, r.Type)
	assert.True(t, r.Redact)

	c, err := NewCatalog(DefaultRules(), WithRules(r))
	require.NoError(t, err)
	assert.Empty(t, c.Scan("func add(a, b int) int { return a + b }", CategorySecrets))
}
