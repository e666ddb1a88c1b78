package domain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrel-forge/codegraphd/internal/config"
)

func TestClassifyByPathPrefix(t *testing.T) {
	cfg := config.Default().Domains
	cfg.SharedPaths = []string{"shared/"}
	cfg.OpsPaths = []string{"ops/"}
	cfg.RustPaths = []string{"backend/"}
	cfg.FrontendPaths = []string{"frontend/"}

	require.Equal(t, Shared, Classify("shared/types.ts", cfg))
	require.Equal(t, Ops, Classify("ops/deploy.yaml", cfg))
	require.Equal(t, Backend, Classify("backend/main.rs", cfg))
	require.Equal(t, Frontend, Classify("frontend/App.vue", cfg))
}

func TestClassifyFallsBackToExtension(t *testing.T) {
	var cfg config.DomainsConfig
	require.Equal(t, Backend, Classify("src/lib.rs", cfg))
	require.Equal(t, Frontend, Classify("src/App.vue", cfg))
	require.Equal(t, Ops, Classify("infra/deploy.yml", cfg))
	require.Equal(t, Unknown, Classify("README.md", cfg))
}

func TestSharedPrefixTakesPriorityOverBackend(t *testing.T) {
	cfg := config.DomainsConfig{
		SharedPaths: []string{"shared/"},
		RustPaths:   []string{"shared/"},
	}
	require.Equal(t, Shared, Classify("shared/model.rs", cfg))
}
