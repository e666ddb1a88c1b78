package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vueSample = `<template>
  <div>
    <UserCard :user="user" />
    <custom-badge />
    <span>{{ label }}</span>
  </div>
</template>

<script lang="ts">
export function label(): string {
  return "hi"
}
</script>
`

func TestParseVueExtractsScriptSymbolsAndComponentUsage(t *testing.T) {
	p := NewParser()
	doc, err := p.ParseFile(context.Background(), []byte(vueSample), "Widget.vue", LangVue)
	require.NoError(t, err)

	var names []string
	for _, s := range doc.Symbols {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "label")

	var components []string
	for _, r := range doc.References {
		if r.Kind == RefComponentUsage {
			components = append(components, r.TargetName)
		}
	}
	assert.Contains(t, components, "UserCard")
	assert.Contains(t, components, "custom-badge")
}
