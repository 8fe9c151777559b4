package sso

import "github.com/platinummonkey/idp-redirect/pkg/observability"

// FactoryID is the identifier under which the login step is registered
const FactoryID = "domain-to-idp-redirect"

// Requirement is how a login step participates in its flow
type Requirement string

const (
	RequirementRequired    Requirement = "REQUIRED"
	RequirementAlternative Requirement = "ALTERNATIVE"
	RequirementDisabled    Requirement = "DISABLED"
)

// Factory describes the login step to a hosting flow and creates instances of it
type Factory struct{}

func (Factory) ID() string { return FactoryID }

func (Factory) DisplayType() string { return "Domain to IdP Redirect Authenticator" }

func (Factory) ReferenceCategory() string { return "Identity Provider" }

func (Factory) HelpText() string {
	return "Maps email domain to a configured external Identity Provider alias and redirect with kc_idp_hint"
}

// RequirementChoices lists the requirements the step may be configured with
func (Factory) RequirementChoices() []Requirement {
	return []Requirement{RequirementRequired, RequirementAlternative}
}

// IsConfigurable is false; the step has no per-flow settings
func (Factory) IsConfigurable() bool { return false }

func (Factory) IsUserSetupAllowed() bool { return false }

// RequiresUser is false since the step runs before any user is identified
func (Factory) RequiresUser() bool { return false }

// ConfiguredFor is always true; the step has no per-user configuration
func (Factory) ConfiguredFor() bool { return true }

// Create builds a step reading mappings from store
func (Factory) Create(store MappingStore, logger *observability.Logger) *Authenticator {
	return NewAuthenticator(store, logger)
}
