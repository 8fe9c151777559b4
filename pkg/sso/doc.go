// Package sso implements the domain-to-IdP redirect login step.
//
// # Overview
//
// The step asks the user for an email address, looks the email's domain up in a
// small mapping table and redirects the login attempt back to the realm's
// authorization endpoint with kc_idp_hint and login_hint set, so the identity
// platform continues the federation flow with the mapped provider.
//
// # Flow
//
//	Authenticate: kc_idp_hint already present -> SignalContinue
//	              otherwise                   -> SignalChallenge (email form)
//	Action:       invalid email               -> SignalChallenge ("Invalid email")
//	              unmapped domain / error     -> SignalChallenge ("Unsupported email domain")
//	              mapped domain               -> SignalRedirect (303 to authorization endpoint)
//
// Store failures are reported to the user exactly like unmapped domains so that
// backend health is never exposed to an unauthenticated caller.
//
// # Usage Example
//
//	store := sso.NewStorage(db, logger)
//	step := sso.NewAuthenticator(sso.NewCachedStore(store, sso.CacheOptions{}), logger)
//	outcome := step.Authenticate(ctx, flow)
//
// # Mapping Stores
//
//   - Storage: database/sql table domain_to_idp (Postgres or SQLite)
//   - FileStore: YAML file, reloaded on change
//   - CachedStore: LRU in front of either, positive results only
//
// # HTTP Host
//
// Handlers exposes the step over HTTP together with an admin API for mappings.
// Authentication sessions live in a SessionStore (memory or redis).
package sso
