package sso

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFactory(t *testing.T) {
	f := Factory{}

	assert.Equal(t, "domain-to-idp-redirect", f.ID())
	assert.Equal(t, "Identity Provider", f.ReferenceCategory())
	assert.NotEmpty(t, f.DisplayType())
	assert.Contains(t, f.HelpText(), "kc_idp_hint")
	assert.Equal(t, []Requirement{RequirementRequired, RequirementAlternative}, f.RequirementChoices())
	assert.False(t, f.IsConfigurable())
	assert.False(t, f.IsUserSetupAllowed())
	assert.False(t, f.RequiresUser())
	assert.True(t, f.ConfiguredFor())

	a := f.Create(newFakeStore(nil), nil)
	assert.NotNil(t, a)
	assert.NotNil(t, a.logger)
}
