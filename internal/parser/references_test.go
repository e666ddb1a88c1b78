package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goCallSample = `package sample

func helper() int {
	return 1
}

func caller() int {
	return helper() + helper()
}
`

func TestExtractReferencesDedupsRepeatedCalls(t *testing.T) {
	p := NewParser()
	doc, err := p.ParseFile(context.Background(), []byte(goCallSample), "calls.go", LangGo)
	require.NoError(t, err)

	var callRefs []Reference
	for _, r := range doc.References {
		if r.Kind == RefCall && r.TargetName == "helper" {
			callRefs = append(callRefs, r)
		}
	}
	require.Len(t, callRefs, 1, "duplicate call to the same target on the same line should dedup")
	assert.Equal(t, "caller", callRefs[0].SourceSymbol)
}

const goImportSample = `package sample

import (
	"fmt"
	"strings"
)

func use() {
	fmt.Println(strings.ToUpper("x"))
}
`

func TestExtractImportsGo(t *testing.T) {
	p := NewParser()
	tree, err := p.Parse(context.Background(), []byte(goImportSample), LangGo)
	require.NoError(t, err)
	cfg, _ := DefaultRegistry().Get(LangGo)

	imports := ExtractImports(tree, cfg)
	require.NotEmpty(t, imports)

	var paths []string
	for _, imp := range imports {
		paths = append(paths, imp.ModulePath)
	}
	assert.Contains(t, paths, "fmt")
	assert.Contains(t, paths, "strings")
	assert.True(t, IsStdlib(LangGo, "fmt"))
	assert.False(t, IsStdlib(LangGo, "github.com/example/pkg"))
}
