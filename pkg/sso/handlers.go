package sso

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/idp-redirect/pkg/audit"
	"github.com/platinummonkey/idp-redirect/pkg/contextkeys"
	"github.com/platinummonkey/idp-redirect/pkg/httputil"
	"github.com/platinummonkey/idp-redirect/pkg/observability"
)

// SessionCodeParam is the query parameter tying a form post to its AuthSession
const SessionCodeParam = "session_code"

// Handlers hosts the login step over HTTP and exposes the mapping admin API
type Handlers struct {
	authenticator *Authenticator
	sessions      SessionStore
	renderer      FormRenderer
	baseURL       string
	logger        *observability.Logger
	metrics       *observability.Metrics

	// Admin API; routes are only registered when storage is set
	storage *Storage
	cache   *CachedStore
	audit   audit.Logger

	loginMiddleware []mux.MiddlewareFunc
}

// NewHandlers creates the HTTP host for authenticator
func NewHandlers(authenticator *Authenticator, sessions SessionStore, renderer FormRenderer, baseURL string, logger *observability.Logger) *Handlers {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Handlers{
		authenticator: authenticator,
		sessions:      sessions,
		renderer:      renderer,
		baseURL:       baseURL,
		logger:        logger,
		audit:         audit.NewNoOpLogger(),
	}
}

// WithAdmin enables the mapping admin API. cache may be nil; when set, writes invalidate it.
func (h *Handlers) WithAdmin(storage *Storage, cache *CachedStore) *Handlers {
	h.storage = storage
	h.cache = cache
	return h
}

// WithAudit records every admin write attempt that reaches storage
func (h *Handlers) WithAudit(logger audit.Logger) *Handlers {
	if logger != nil {
		h.audit = logger
	}
	return h
}

// WithMetrics records step outcomes and session store failures
func (h *Handlers) WithMetrics(metrics *observability.Metrics) *Handlers {
	h.metrics = metrics
	return h
}

// WithLoginMiddleware wraps the form post route, e.g. with a rate limiter
func (h *Handlers) WithLoginMiddleware(mw ...mux.MiddlewareFunc) *Handlers {
	h.loginMiddleware = append(h.loginMiddleware, mw...)
	return h
}

// RegisterRoutes registers login and admin routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/realms/{realm}/protocol/openid-connect/auth", h.authorize).Methods("GET")

	actions := router.PathPrefix("/realms/{realm}/login-actions").Subrouter()
	actions.Use(h.loginMiddleware...)
	actions.HandleFunc("/authenticate", h.authenticate).Methods("POST")

	if h.storage == nil {
		return
	}
	router.HandleFunc("/admin/domain-mappings", h.listMappings).Methods("GET")
	router.HandleFunc("/admin/domain-mappings", h.createMapping).Methods("POST")
	router.HandleFunc("/admin/domain-mappings/{domain}", h.getMapping).Methods("GET")
	router.HandleFunc("/admin/domain-mappings/{domain}", h.updateMapping).Methods("PUT")
	router.HandleFunc("/admin/domain-mappings/{domain}", h.deleteMapping).Methods("DELETE")
}

// authorize handles GET /realms/{realm}/protocol/openid-connect/auth
func (h *Handlers) authorize(w http.ResponseWriter, r *http.Request) {
	realm := mux.Vars(r)["realm"]
	query := r.URL.Query()

	clientID := query.Get(ParamClientID)
	redirectURI := query.Get(ParamRedirectURI)
	if clientID == "" || redirectURI == "" {
		httputil.WriteBadRequest(w, "client_id and redirect_uri are required")
		return
	}

	session := NewAuthSession(realm, clientID, redirectURI)
	for _, key := range []string{ParamState, ParamNonce} {
		if v := query.Get(key); v != "" {
			session.ClientNotes[key] = v
		}
	}
	if hints, ok := query[IdpHintParam]; ok && len(hints) > 0 {
		session.ClientNotes[IdpHintParam] = hints[0]
	}
	if loginHint := query.Get(LoginHintParam); loginHint != "" {
		session.ClientNotes[LoginHintParam] = loginHint
	}

	ctx := contextkeys.WithRealm(r.Context(), realm)
	flow := newHTTPFlow(r, session, h.baseURL)
	outcome := h.authenticator.Authenticate(ctx, flow)
	h.observe(outcome)

	if outcome.Signal == SignalContinue {
		h.continueToBroker(w, r, session)
		return
	}

	if err := h.sessions.Save(ctx, session); err != nil {
		h.sessionError("save", err)
		httputil.WriteInternalError(w)
		return
	}
	h.render(w, outcome, session)
}

// continueToBroker hands an attempt that already names its IdP to the broker endpoint
func (h *Handlers) continueToBroker(w http.ResponseWriter, r *http.Request, session *AuthSession) {
	hint := session.ClientNotes[IdpHintParam]
	if hint == "" {
		httputil.WriteBadRequest(w, "kc_idp_hint is empty")
		return
	}

	if err := h.sessions.Save(r.Context(), session); err != nil {
		h.sessionError("save", err)
		httputil.WriteInternalError(w)
		return
	}

	target, err := brokerLoginURI(h.baseURL, session, hint)
	if err != nil {
		h.logger.WithError(err).Error("Failed to build broker login URI")
		httputil.WriteInternalError(w)
		return
	}
	http.Redirect(w, r, target.String(), http.StatusFound)
}

// authenticate handles POST /realms/{realm}/login-actions/authenticate
func (h *Handlers) authenticate(w http.ResponseWriter, r *http.Request) {
	realm := mux.Vars(r)["realm"]
	code := r.URL.Query().Get(SessionCodeParam)
	if code == "" {
		httputil.WriteBadRequest(w, "session expired")
		return
	}

	session, err := h.sessions.Get(r.Context(), code)
	if errors.Is(err, ErrSessionNotFound) {
		httputil.WriteBadRequest(w, "session expired")
		return
	}
	if err != nil {
		h.sessionError("get", err)
		httputil.WriteInternalError(w)
		return
	}
	if session.Realm != realm {
		httputil.WriteBadRequest(w, "session expired")
		return
	}

	if err := r.ParseForm(); err != nil {
		httputil.WriteBadRequest(w, "invalid form body")
		return
	}

	ctx := contextkeys.WithRealm(r.Context(), realm)
	flow := newHTTPFlow(r, session, h.baseURL)
	outcome := h.authenticator.Action(ctx, flow)
	h.observe(outcome)

	switch outcome.Signal {
	case SignalRedirect:
		// The attempt ends here. Its hints travel in the redirect query and are
		// picked up again by the authorize request it leads to.
		if err := h.sessions.Delete(ctx, session.Code); err != nil {
			h.sessionError("delete", err)
		}
		http.Redirect(w, r, outcome.RedirectURI.String(), http.StatusSeeOther)
	default:
		h.render(w, outcome, session)
	}
}

func (h *Handlers) render(w http.ResponseWriter, outcome Outcome, session *AuthSession) {
	form := outcome.Form
	if form == nil {
		form = &Form{Template: EmailFormTemplate}
	}
	if err := h.renderer.Render(w, form, actionURL(session)); err != nil {
		h.logger.WithError(err).Error("Failed to render login form")
		httputil.WriteInternalError(w)
	}
}

func (h *Handlers) observe(outcome Outcome) {
	h.metrics.ObserveOutcome(string(outcome.Signal), string(outcome.Reason))
}

func (h *Handlers) sessionError(operation string, err error) {
	h.logger.WithError(err).WithField("operation", operation).Error("Session store failure")
	if h.metrics != nil {
		h.metrics.SessionStoreErrorsTotal.WithLabelValues(operation).Inc()
	}
}

func actionURL(session *AuthSession) string {
	q := url.Values{}
	q.Set(SessionCodeParam, session.Code)
	return "/realms/" + url.PathEscape(session.Realm) + "/login-actions/authenticate?" + q.Encode()
}

func brokerLoginURI(baseURI string, session *AuthSession, hint string) (*url.URL, error) {
	base, err := url.Parse(baseURI)
	if err != nil {
		return nil, err
	}
	if base.Path == "" {
		base.Path = "/"
	}
	u := base.JoinPath("realms", url.PathEscape(session.Realm), "broker", url.PathEscape(hint), "login")
	q := url.Values{}
	q.Set(ParamClientID, session.ClientID)
	q.Set(SessionCodeParam, session.Code)
	if loginHint := session.ClientNotes[LoginHintParam]; loginHint != "" {
		q.Set(LoginHintParam, loginHint)
	}
	u.RawQuery = q.Encode()
	return u, nil
}

// httpFlow adapts one HTTP request and its AuthSession to FlowContext
type httpFlow struct {
	r       *http.Request
	session *AuthSession
	baseURL string
}

func newHTTPFlow(r *http.Request, session *AuthSession, baseURL string) *httpFlow {
	return &httpFlow{r: r, session: session, baseURL: baseURL}
}

func (f *httpFlow) QueryParams() url.Values { return f.r.URL.Query() }

func (f *httpFlow) FormParams() url.Values {
	if f.r.PostForm == nil {
		return url.Values{}
	}
	return f.r.PostForm
}

func (f *httpFlow) ClientNote(key string) (string, bool) {
	v, ok := f.session.ClientNotes[key]
	return v, ok
}

func (f *httpFlow) SetClientNote(key, value string) { f.session.ClientNotes[key] = value }
func (f *httpFlow) SetAuthNote(key, value string)   { f.session.AuthNotes[key] = value }
func (f *httpFlow) ClientID() string                { return f.session.ClientID }
func (f *httpFlow) RedirectURI() string             { return f.session.RedirectURI }
func (f *httpFlow) RealmName() string               { return f.session.Realm }
func (f *httpFlow) BaseURI() string                 { return f.baseURL }

// mappingRequest is the body of POST /admin/domain-mappings
type mappingRequest struct {
	EmailDomain string `json:"email_domain" validate:"required,fqdn"`
	IdpAlias    string `json:"idp_alias" validate:"required,max=255"`
	Enabled     *bool  `json:"enabled"`
}

// mappingUpdateRequest is the body of PUT /admin/domain-mappings/{domain}
type mappingUpdateRequest struct {
	IdpAlias string `json:"idp_alias" validate:"required,max=255"`
	Enabled  *bool  `json:"enabled" validate:"required"`
}

// listMappings handles GET /admin/domain-mappings
func (h *Handlers) listMappings(w http.ResponseWriter, r *http.Request) {
	enabledOnly, err := httputil.ParseQueryBool(r, "enabled", false)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	mappings, err := h.storage.ListMappings(r.Context(), enabledOnly)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list domain mappings")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, mappings)
}

// createMapping handles POST /admin/domain-mappings
func (h *Handlers) createMapping(w http.ResponseWriter, r *http.Request) {
	var req mappingRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	req.EmailDomain = NormalizeDomain(req.EmailDomain)
	if !httputil.ValidateStructOrError(w, &req) {
		return
	}

	mapping := &DomainMapping{
		EmailDomain: req.EmailDomain,
		IdpAlias:    strings.TrimSpace(req.IdpAlias),
		Enabled:     req.Enabled == nil || *req.Enabled,
	}
	err := h.storage.CreateMapping(r.Context(), mapping)
	h.record(r, audit.EventTypeMappingCreate, mapping.EmailDomain, mapping, err)
	if errors.Is(err, ErrMappingExists) {
		httputil.WriteConflict(w, "domain mapping already exists")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to create domain mapping")
		httputil.WriteInternalError(w)
		return
	}

	h.invalidate(mapping.EmailDomain)
	h.logger.WithField("domain", mapping.EmailDomain).WithField("idp_alias", mapping.IdpAlias).Info("Domain mapping created")
	httputil.WriteCreated(w, mapping)
}

// getMapping handles GET /admin/domain-mappings/{domain}
func (h *Handlers) getMapping(w http.ResponseWriter, r *http.Request) {
	domain, ok := httputil.ParsePathStringOrError(w, r, "domain")
	if !ok {
		return
	}

	mapping, err := h.storage.GetMapping(r.Context(), domain)
	if errors.Is(err, ErrMappingNotFound) {
		httputil.WriteNotFoundError(w, "domain mapping not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get domain mapping")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, mapping)
}

// updateMapping handles PUT /admin/domain-mappings/{domain}
func (h *Handlers) updateMapping(w http.ResponseWriter, r *http.Request) {
	domain, ok := httputil.ParsePathStringOrError(w, r, "domain")
	if !ok {
		return
	}

	var req mappingUpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.ValidateStructOrError(w, &req) {
		return
	}

	mapping := &DomainMapping{
		EmailDomain: domain,
		IdpAlias:    strings.TrimSpace(req.IdpAlias),
		Enabled:     *req.Enabled,
	}
	err := h.storage.UpdateMapping(r.Context(), mapping)
	h.record(r, audit.EventTypeMappingUpdate, NormalizeDomain(domain), mapping, err)
	if errors.Is(err, ErrMappingNotFound) {
		httputil.WriteNotFoundError(w, "domain mapping not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to update domain mapping")
		httputil.WriteInternalError(w)
		return
	}
	h.invalidate(mapping.EmailDomain)

	updated, err := h.storage.GetMapping(r.Context(), mapping.EmailDomain)
	if err != nil {
		h.logger.WithError(err).Error("Failed to reload domain mapping")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, updated)
}

// deleteMapping handles DELETE /admin/domain-mappings/{domain}
func (h *Handlers) deleteMapping(w http.ResponseWriter, r *http.Request) {
	domain, ok := httputil.ParsePathStringOrError(w, r, "domain")
	if !ok {
		return
	}

	err := h.storage.DeleteMapping(r.Context(), domain)
	h.record(r, audit.EventTypeMappingDelete, NormalizeDomain(domain), nil, err)
	if errors.Is(err, ErrMappingNotFound) {
		httputil.WriteNotFoundError(w, "domain mapping not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to delete domain mapping")
		httputil.WriteInternalError(w)
		return
	}

	h.invalidate(domain)
	httputil.WriteNoContent(w)
}

func (h *Handlers) invalidate(domain string) {
	if h.cache != nil {
		h.cache.Invalidate(domain)
	}
}

func (h *Handlers) record(r *http.Request, eventType audit.EventType, domain string, mapping *DomainMapping, err error) {
	status := audit.EventStatusSuccess
	if err != nil {
		status = audit.EventStatusFailure
	}
	event := audit.NewEvent(r, eventType, status, domain)
	if mapping != nil {
		enabled := mapping.Enabled
		event.IdpAlias = mapping.IdpAlias
		event.Enabled = &enabled
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	if logErr := h.audit.Log(r.Context(), event); logErr != nil {
		h.logger.WithError(logErr).WithField("domain", domain).Warn("Failed to write audit event")
	}
}
