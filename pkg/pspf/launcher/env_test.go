package launcher

import (
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"

	"github.com/pspf/flavorpack/pkg/pspf/format"
)

func testLogger() hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{Name: "test", Level: hclog.Trace, Output: hclog.DefaultOutput})
}

func envMapOf(env []string) map[string]string {
	return envToMap(env)
}

// TestApplyEnvPolicyPassRestoresAfterUnsetAll is the policy's central
// guarantee: pass reads the ORIGINAL parent environment, not the
// in-progress result, so a var wiped by unset "*" can still come back
// through a later pass entry.
func TestApplyEnvPolicyPassRestoresAfterUnsetAll(t *testing.T) {
	parent := []string{"PATH=/usr/bin", "HOME=/home/user", "SECRET=hunter2"}
	policy := format.EnvPolicy{
		Unset: []string{"*"},
		Pass:  []string{"PATH", "HOME"},
	}

	out := applyEnvPolicy(parent, policy, testLogger())
	got := envMapOf(out)

	assert.Equal(t, "/usr/bin", got["PATH"])
	assert.Equal(t, "/home/user", got["HOME"])
	_, hasSecret := got["SECRET"]
	assert.False(t, hasSecret)
}

func TestApplyEnvPolicyOrderUnsetPassSetMap(t *testing.T) {
	parent := []string{"FOO=original", "BAR=keep"}
	policy := format.EnvPolicy{
		Unset: []string{"FOO"},
		Pass:  []string{"BAR"},
		Set:   map[string]string{"FOO": "set-value", "NEW": "new-value"},
		Map:   map[string]string{"FOO": "RENAMED"},
	}

	out := applyEnvPolicy(parent, policy, testLogger())
	got := envMapOf(out)

	_, hasFoo := got["FOO"]
	assert.False(t, hasFoo, "FOO should have been renamed away by map")
	assert.Equal(t, "set-value", got["RENAMED"])
	assert.Equal(t, "new-value", got["NEW"])
	assert.Equal(t, "keep", got["BAR"])
}

func TestApplyEnvPolicyGlobUnset(t *testing.T) {
	parent := []string{"AWS_ACCESS_KEY=x", "AWS_SECRET=y", "PATH=/usr/bin"}
	policy := format.EnvPolicy{Unset: []string{"AWS_*"}}

	out := applyEnvPolicy(parent, policy, testLogger())
	got := envMapOf(out)

	_, hasAccess := got["AWS_ACCESS_KEY"]
	_, hasSecret := got["AWS_SECRET"]
	assert.False(t, hasAccess)
	assert.False(t, hasSecret)
	assert.Equal(t, "/usr/bin", got["PATH"])
}

func TestApplyEnvPolicyEmptyPolicyPassesEverythingThrough(t *testing.T) {
	parent := []string{"A=1", "B=2"}
	out := applyEnvPolicy(parent, format.EnvPolicy{}, testLogger())
	got := envMapOf(out)

	assert.Equal(t, "1", got["A"])
	assert.Equal(t, "2", got["B"])
}

func TestMatchesGlobAndExact(t *testing.T) {
	assert.True(t, matches("PATH", "PATH"))
	assert.False(t, matches("PATH", "PATHX"))
	assert.True(t, matches("AWS_*", "AWS_SECRET"))
	assert.False(t, matches("AWS_*", "GCP_SECRET"))
}
