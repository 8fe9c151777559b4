package sso

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"alice@example.com", true},
		{"Alice.Smith+tag@Sub.Example.co.uk", true},
		{"", false},
		{"not-an-email", false},
		{"a@", false},
		{"@example.com", false},
		{"alice@example .com", false},
		// Single-label hosts cannot be mapped, so they are rejected up front
		{"user@localhost", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidEmail(tt.email))
		})
	}
}

func TestExtractDomain(t *testing.T) {
	assert.Equal(t, "example.com", ExtractDomain("alice@example.com"))
	assert.Equal(t, "example.com", ExtractDomain("Alice@EXAMPLE.COM"))
	assert.Equal(t, "sub.example.com", ExtractDomain("a@Sub.Example.com"))
	// Everything after the first '@' is the domain
	assert.Equal(t, `b"@example.com`, ExtractDomain(`"a@b"@example.com`))
}
