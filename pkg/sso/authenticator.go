package sso

import (
	"context"
	"errors"

	"github.com/platinummonkey/idp-redirect/pkg/observability"
)

// Authenticator is the domain-to-IdP redirect login step.
// It holds no per-attempt state and is safe for concurrent use.
type Authenticator struct {
	store  MappingStore
	logger *observability.Logger
}

// NewAuthenticator creates the login step reading mappings from store
func NewAuthenticator(store MappingStore, logger *observability.Logger) *Authenticator {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Authenticator{
		store:  store,
		logger: logger,
	}
}

// Authenticate is the entry guard. A request that already names an IdP skips
// the step; anything else gets the email form.
func (a *Authenticator) Authenticate(ctx context.Context, flow FlowContext) Outcome {
	if HasIdpHint(flow) {
		a.logger.Debug("kc_idp_hint already present, skipping email form")
		return Outcome{Signal: SignalContinue, Reason: ReasonHintPresent}
	}
	return a.Present()
}

// Present renders an empty email form
func (a *Authenticator) Present() Outcome {
	return Outcome{
		Signal: SignalChallenge,
		Reason: ReasonFormPresented,
		Form:   &Form{Template: EmailFormTemplate},
	}
}

// Action handles the form post
func (a *Authenticator) Action(ctx context.Context, flow FlowContext) Outcome {
	return a.Submit(ctx, flow, flow.FormParams().Get(UsernameField))
}

// Submit validates rawEmail, resolves its domain and either re-prompts or redirects
func (a *Authenticator) Submit(ctx context.Context, flow FlowContext, rawEmail string) Outcome {
	if !IsValidEmail(rawEmail) {
		return presentWithError(ReasonInvalidEmail, ErrorInvalidEmail)
	}

	domain := ExtractDomain(rawEmail)
	logger := a.logger.WithField("domain", domain)

	idpAlias, err := a.store.FindEnabledIdpAlias(ctx, domain)
	if errors.Is(err, ErrMappingNotFound) {
		logger.Warn("No IdP mapping found for domain")
		return presentWithError(ReasonUnsupportedDomain, ErrorUnsupportedDomain)
	}
	if err != nil {
		logger.WithError(err).Error("Error resolving IdP alias for domain")
		return presentWithError(ReasonLookupFailed, ErrorUnsupportedDomain)
	}

	params := RedirectParams{
		BaseURI:     flow.BaseURI(),
		Realm:       flow.RealmName(),
		ClientID:    flow.ClientID(),
		RedirectURI: flow.RedirectURI(),
		IdpAlias:    idpAlias,
		Email:       rawEmail,
	}
	if state, ok := flow.ClientNote(ParamState); ok {
		params.State = state
	}
	if nonce, ok := flow.ClientNote(ParamNonce); ok {
		params.Nonce = nonce
	}

	redirectURI, err := BuildRedirectURI(params)
	if err != nil {
		logger.WithError(err).Error("Failed to build IdP redirect URI")
		return presentWithError(ReasonRedirectFailed, ErrorInternal)
	}

	flow.SetClientNote(IdpHintParam, idpAlias)
	flow.SetAuthNote(EmailNote, rawEmail)

	logger.WithField("idp_alias", idpAlias).Info("Redirecting to mapped identity provider")
	return Outcome{
		Signal:      SignalRedirect,
		Reason:      ReasonRedirected,
		RedirectURI: redirectURI,
	}
}

// HasIdpHint reports whether the request already carries kc_idp_hint, even empty
func HasIdpHint(flow FlowContext) bool {
	_, ok := flow.QueryParams()[IdpHintParam]
	return ok
}

func presentWithError(reason Reason, message string) Outcome {
	return Outcome{
		Signal: SignalChallenge,
		Reason: reason,
		Form:   &Form{Template: EmailFormTemplate, Error: message},
	}
}
