package sso

import "context"

// MappingStore resolves an email domain to the alias of its enabled identity provider.
// Implementations return ErrMappingNotFound when no enabled mapping exists.
type MappingStore interface {
	FindEnabledIdpAlias(ctx context.Context, domain string) (string, error)
}

// MappingCounter is implemented by stores that can report how many mappings are enabled
type MappingCounter interface {
	CountEnabled(ctx context.Context) (int, error)
}
