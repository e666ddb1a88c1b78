package parser

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goSample = `package sample

import "fmt"

// Greet returns a greeting for name.
func Greet(name string) string {
	return fmt.Sprintf("hello %s", name)
}

type Point struct {
	X int
	Y int
	Z int
}

func (p Point) Sum() int {
	return p.X + p.Y + p.Z
}
`

func TestParseFileGoSymbolsAndChunksAgreeOnLines(t *testing.T) {
	p := NewParser()
	doc, err := p.ParseFile(context.Background(), []byte(goSample), "sample.go", LangGo)
	require.NoError(t, err)

	var names []string
	for _, s := range doc.Symbols {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "Greet")
	assert.Contains(t, names, "Point")
	assert.Contains(t, names, "Sum")

	require.NotEmpty(t, doc.Chunks)
	for _, c := range doc.Chunks {
		assert.LessOrEqual(t, c.LineStart, c.LineEnd)
		assert.Equal(t, chunkID("sample.go", c.LineStart, c.LineEnd), c.ID)
	}
}

func TestParseIsDeterministicAcrossRuns(t *testing.T) {
	p := NewParser()
	doc1, err := p.ParseFile(context.Background(), []byte(goSample), "sample.go", LangGo)
	require.NoError(t, err)
	doc2, err := p.ParseFile(context.Background(), []byte(goSample), "sample.go", LangGo)
	require.NoError(t, err)

	assert.Equal(t, len(doc1.Symbols), len(doc2.Symbols))
	assert.Equal(t, len(doc1.Chunks), len(doc2.Chunks))
	assert.Equal(t, doc1.Skeleton, doc2.Skeleton)
}

func TestChunksRespectSizeInvariant(t *testing.T) {
	var b strings.Builder
	b.WriteString("package big\n\n")
	for i := 0; i < 200; i++ {
		b.WriteString("func F")
		b.WriteString(itoa(i))
		b.WriteString("() int { return ")
		b.WriteString(itoa(i))
		b.WriteString(" }\n")
	}

	p := NewParser()
	doc, err := p.ParseFile(context.Background(), []byte(b.String()), "big.go", LangGo)
	require.NoError(t, err)
	require.NotEmpty(t, doc.Chunks)

	for i, c := range doc.Chunks {
		// a breadcrumb comment is prepended after the byte budget is
		// measured, so the emitted content can run a little past
		// maxChunkBytes; it never runs past a second breadcrumb line.
		assert.LessOrEqual(t, len(c.Content), maxChunkBytes+64, "chunk %s exceeds size bound", c.ID)
		if i == len(doc.Chunks)-1 {
			continue // the trailing chunk may be smaller with nothing left to merge into
		}
		assert.GreaterOrEqual(t, len(c.Content), minChunkBytes, "chunk %s falls under the size floor", c.ID)
	}
}

func TestSkeletonizeReplacesBodiesAndIsIdempotent(t *testing.T) {
	p := NewParser()
	tree, err := p.Parse(context.Background(), []byte(goSample), LangGo)
	require.NoError(t, err)

	cfg, ok := DefaultRegistry().Get(LangGo)
	require.True(t, ok)
	symbols := ExtractSymbols(tree, cfg)

	skeleton := Skeletonize(tree, symbols)
	assert.Contains(t, skeleton, bodyPlaceholder)
	assert.NotContains(t, skeleton, "fmt.Sprintf")
	assert.Contains(t, skeleton, "func Greet(name string) string")

	tree2, err := p.Parse(context.Background(), []byte(skeleton), LangGo)
	require.NoError(t, err)
	symbols2 := ExtractSymbols(tree2, cfg)
	skeleton2 := Skeletonize(tree2, symbols2)
	assert.Equal(t, skeleton, skeleton2)
}

func TestExtractFingerprintsRequiresMinimumFields(t *testing.T) {
	p := NewParser()
	tree, err := p.Parse(context.Background(), []byte(goSample), LangGo)
	require.NoError(t, err)

	cfg, _ := DefaultRegistry().Get(LangGo)
	fps := ExtractFingerprints(tree, cfg)
	require.Len(t, fps, 1)
	assert.Equal(t, "Point", fps[0].Name)
	assert.Len(t, fps[0].Fields, 3)
}

func TestLanguageForExtension(t *testing.T) {
	lang, ok := LanguageForExtension(".rs")
	assert.True(t, ok)
	assert.Equal(t, LangRust, lang)

	lang, ok = LanguageForExtension("vue")
	assert.True(t, ok)
	assert.Equal(t, LangVue, lang)

	_, ok = LanguageForExtension(".unknown")
	assert.False(t, ok)
}
