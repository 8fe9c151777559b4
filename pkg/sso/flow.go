package sso

import "net/url"

// FlowContext is the ambient per-login-attempt state provided by the hosting
// authentication platform. The step reads request parameters and flow settings
// from it and records its results as session notes.
type FlowContext interface {
	// QueryParams returns the current request's query parameters
	QueryParams() url.Values
	// FormParams returns the decoded form post body
	FormParams() url.Values

	// ClientNote returns a note inherited from the client's authorization request (state, nonce)
	ClientNote(key string) (string, bool)
	// SetClientNote records a note visible to the client protocol
	SetClientNote(key, value string)
	// SetAuthNote records a note visible to later steps of the flow
	SetAuthNote(key, value string)

	ClientID() string
	RedirectURI() string
	RealmName() string
	// BaseURI is the platform's public base URL, e.g. https://id.example.com/
	BaseURI() string
}
