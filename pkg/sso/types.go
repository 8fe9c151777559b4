package sso

import (
	"net/url"
	"time"
)

const (
	// IdpHintParam names the query parameter and client note carrying the IdP alias
	IdpHintParam = "kc_idp_hint"
	// LoginHintParam names the query parameter carrying the user's email
	LoginHintParam = "login_hint"
	// EmailNote is the auth note recording the email that was mapped
	EmailNote = "mapped_email"
	// UsernameField is the form field holding the submitted email
	UsernameField = "username"
	// EmailFormTemplate identifies the email collection form
	EmailFormTemplate = "email-form"
)

// OAuth2 parameter names used when rebuilding the authorization request
const (
	ParamClientID     = "client_id"
	ParamRedirectURI  = "redirect_uri"
	ParamResponseType = "response_type"
	ParamScope        = "scope"
	ParamState        = "state"
	ParamNonce        = "nonce"
)

// User-facing form errors. Store failures deliberately reuse ErrorUnsupportedDomain.
const (
	ErrorInvalidEmail      = "Invalid email"
	ErrorUnsupportedDomain = "Unsupported email domain"
	ErrorInternal          = "Login could not be completed"
)

// DomainMapping associates an email domain with a configured identity provider alias
type DomainMapping struct {
	ID          int64     `json:"id"`
	EmailDomain string    `json:"email_domain"`
	IdpAlias    string    `json:"idp_alias"`
	Enabled     bool      `json:"enabled"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Signal is the completion signal a login step reports to the surrounding flow
type Signal string

const (
	// SignalContinue means the step is already satisfied
	SignalContinue Signal = "continue"
	// SignalChallenge means a form was shown and the attempt waits for user input
	SignalChallenge Signal = "challenge"
	// SignalRedirect means the attempt must be redirected; terminal for this step
	SignalRedirect Signal = "redirect"
)

// Reason explains an Outcome for logs and metrics. It is never shown to the user.
type Reason string

const (
	ReasonHintPresent       Reason = "hint_present"
	ReasonFormPresented     Reason = "form_presented"
	ReasonInvalidEmail      Reason = "invalid_email"
	ReasonUnsupportedDomain Reason = "unsupported_domain"
	ReasonLookupFailed      Reason = "lookup_failed"
	ReasonRedirectFailed    Reason = "redirect_failed"
	ReasonRedirected        Reason = "redirected"
)

// Form describes the email collection form to render
type Form struct {
	Template string
	Username string
	Error    string
}

// Outcome is the result of one invocation of the login step
type Outcome struct {
	Signal      Signal
	Reason      Reason
	Form        *Form
	RedirectURI *url.URL
}
