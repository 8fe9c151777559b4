package sso

import "errors"

var (
	// ErrMappingNotFound is returned by a MappingStore when no enabled mapping exists for a domain
	ErrMappingNotFound = errors.New("domain mapping not found")

	// ErrMappingExists is returned when creating a mapping for a domain that already has one
	ErrMappingExists = errors.New("domain mapping already exists")

	// ErrSessionNotFound is returned by a SessionStore for unknown or expired session codes
	ErrSessionNotFound = errors.New("authentication session not found")
)
