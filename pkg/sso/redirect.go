package sso

import (
	"fmt"
	"net/url"
	"strings"
)

// RedirectParams holds the inputs of an authorization endpoint redirect.
// State and Nonce are omitted from the URI when empty.
type RedirectParams struct {
	BaseURI     string
	Realm       string
	ClientID    string
	RedirectURI string
	IdpAlias    string
	Email       string
	State       string
	Nonce       string
}

// BuildRedirectURI builds {base}/realms/{realm}/protocol/openid-connect/auth with the
// original client parameters plus kc_idp_hint and login_hint. Parameters keep a fixed order.
func BuildRedirectURI(p RedirectParams) (*url.URL, error) {
	base, err := url.Parse(p.BaseURI)
	if err != nil {
		return nil, fmt.Errorf("invalid base URI %q: %w", p.BaseURI, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URI %q must be absolute", p.BaseURI)
	}
	if p.Realm == "" {
		return nil, fmt.Errorf("realm name is required")
	}

	if base.Path == "" {
		base.Path = "/"
	}
	target := base.JoinPath("realms", url.PathEscape(p.Realm), "protocol", "openid-connect", "auth")

	query := orderedQuery{}
	query.add(ParamClientID, p.ClientID)
	query.add(ParamRedirectURI, p.RedirectURI)
	query.add(ParamResponseType, "code")
	query.add(ParamScope, "openid")
	query.add(IdpHintParam, p.IdpAlias)
	query.add(LoginHintParam, p.Email)
	if p.State != "" {
		query.add(ParamState, p.State)
	}
	if p.Nonce != "" {
		query.add(ParamNonce, p.Nonce)
	}

	target.RawQuery = query.encode()
	target.Fragment = ""
	return target, nil
}

// orderedQuery encodes parameters in insertion order; url.Values sorts by key.
type orderedQuery []string

func (q *orderedQuery) add(key, value string) {
	*q = append(*q, url.QueryEscape(key)+"="+url.QueryEscape(value))
}

func (q orderedQuery) encode() string {
	return strings.Join(q, "&")
}
