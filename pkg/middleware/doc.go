// Package middleware provides HTTP middleware for the login endpoints.
//
// # Rate Limiting
//
// RateLimiter throttles form submissions per client IP with a token bucket from
// golang.org/x/time/rate. Every email submission may cost a database lookup, so
// the authenticate route is wrapped with it:
//
//	limiter := middleware.NewRateLimiter(&middleware.RateLimitConfig{
//		RequestsPerSecond: 1,
//		Burst:             5,
//	})
//	limiter.StartCleanup(ctx)
//	handlers.WithLoginMiddleware(limiter.Handler)
//
// Idle client buckets are removed by StartCleanup after IdleTTL.
//
// X-Forwarded-For and X-Real-IP are only honoured when TrustProxyHeaders is set.
package middleware
