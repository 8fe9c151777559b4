package sso

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMappingsYAML = `
mappings:
  - domain: Example.COM
    idp_alias: corp-saml
  - domain: example.com
    idp_alias: shadowed
  - domain: old.example
    idp_alias: legacy
    enabled: false
  - domain: partner.example
    idp_alias: partner-oidc
    enabled: true
`

func writeMappings(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestFileStore_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.yaml")
	writeMappings(t, path, testMappingsYAML)

	store, err := NewFileStore(path, nil)
	require.NoError(t, err)
	ctx := context.Background()

	alias, err := store.FindEnabledIdpAlias(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, "corp-saml", alias)

	alias, err = store.FindEnabledIdpAlias(ctx, "partner.example")
	require.NoError(t, err)
	assert.Equal(t, "partner-oidc", alias)

	_, err = store.FindEnabledIdpAlias(ctx, "old.example")
	assert.ErrorIs(t, err, ErrMappingNotFound)

	count, err := store.CountEnabled(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestFileStore_InvalidFiles(t *testing.T) {
	dir := t.TempDir()

	_, err := NewFileStore(filepath.Join(dir, "missing.yaml"), nil)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	writeMappings(t, bad, "mappings: [unterminated")
	_, err = NewFileStore(bad, nil)
	assert.Error(t, err)

	incomplete := filepath.Join(dir, "incomplete.yaml")
	writeMappings(t, incomplete, "mappings:\n  - domain: example.com\n")
	_, err = NewFileStore(incomplete, nil)
	assert.Error(t, err)
}

func TestFileStore_ReloadKeepsPreviousOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.yaml")
	writeMappings(t, path, testMappingsYAML)

	store, err := NewFileStore(path, nil)
	require.NoError(t, err)

	writeMappings(t, path, "mappings: [unterminated")
	assert.Error(t, store.Reload())

	alias, err := store.FindEnabledIdpAlias(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, "corp-saml", alias)
}

func TestFileStore_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.yaml")
	writeMappings(t, path, testMappingsYAML)

	store, err := NewFileStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, store.Watch())
	defer store.Close()

	writeMappings(t, path, "mappings:\n  - domain: example.com\n    idp_alias: corp-oidc\n")

	assert.Eventually(t, func() bool {
		alias, err := store.FindEnabledIdpAlias(context.Background(), "example.com")
		return err == nil && alias == "corp-oidc"
	}, 2*time.Second, 20*time.Millisecond)

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
