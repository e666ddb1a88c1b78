package gitignore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchBasicPatterns(t *testing.T) {
	m := New()
	m.AddPattern("*.log")
	m.AddPattern("/build/")
	m.AddPattern("node_modules/")

	assert.True(t, m.Match("debug.log", false))
	assert.False(t, m.Match("debug.logger", false))
	assert.True(t, m.Match("build", true))
	assert.False(t, m.Match("sub/build", true), "anchored pattern should not match nested build/")
	assert.True(t, m.Match("src/node_modules/pkg/index.js", false))
}

func TestMatchNegation(t *testing.T) {
	m := New()
	m.AddPattern("*.log")
	m.AddPattern("!important.log")

	assert.True(t, m.Match("debug.log", false))
	assert.False(t, m.Match("important.log", false))
}

func TestMatchDoubleStar(t *testing.T) {
	m := New()
	m.AddPattern("**/vendor/**")

	assert.True(t, m.Match("a/b/vendor/c/d.go", false))
}

func TestAddPatternWithBaseScopesToSubtree(t *testing.T) {
	m := New()
	m.AddPatternWithBase("local.txt", "sub/dir")

	assert.True(t, m.Match("sub/dir/local.txt", false))
	assert.False(t, m.Match("other/local.txt", false))
}
