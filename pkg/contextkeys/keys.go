// Package contextkeys provides centralized context key definitions
//
// All context keys used across the application are defined here so that key
// usage stays discoverable and collisions are impossible.
//
// USAGE PATTERN:
//
//	ctx = contextkeys.WithRequestID(ctx, id)
//	id := contextkeys.GetRequestID(ctx)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// RequestIDKey contains request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: Logger, response headers
	// Type: string
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: httputil.LoggingMiddleware
	// Used by: Handlers that need structured logging with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"

	// RealmKey contains the realm name taken from the request path
	// Set by: sso.Handlers
	// Used by: Logger fields, flow context
	// Type: string
	RealmKey Key = "realm"
)

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// WithRealm adds the realm name to the context
func WithRealm(ctx context.Context, realm string) context.Context {
	return context.WithValue(ctx, RealmKey, realm)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetRealm retrieves the realm name from context
func GetRealm(ctx context.Context) string {
	if realm, ok := ctx.Value(RealmKey).(string); ok {
		return realm
	}
	return ""
}
