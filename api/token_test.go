package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cleanstreet/clean-street-api/api"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	token, err := api.IssueSessionToken("secret", "6592008029c8c3e4dc76256c", "admin", "dale@city.gov")
	assert.NoError(t, err)

	variant, err := api.DecodeToken("secret", token)
	assert.NoError(t, err)

	session, ok := variant.(api.SessionToken)
	if assert.True(t, ok, "expected a session token variant") {
		assert.Equal(t, "6592008029c8c3e4dc76256c", session.ID)
		assert.Equal(t, "admin", session.Role)
		assert.Equal(t, "dale@city.gov", session.Email)
	}
}

func TestResetTokenDecodesAsLegacy(t *testing.T) {
	token, err := api.IssueResetToken("secret", "6592008029c8c3e4dc76256c")
	assert.NoError(t, err)

	variant, err := api.DecodeToken("secret", token)
	assert.NoError(t, err)

	legacy, ok := variant.(api.LegacyToken)
	if assert.True(t, ok, "expected a legacy token variant") {
		assert.Equal(t, "6592008029c8c3e4dc76256c", legacy.ID)
	}
}

func TestDecodeTokenWrongSecret(t *testing.T) {
	token, err := api.IssueSessionToken("secret", "6592008029c8c3e4dc76256c", "user", "jane@example.com")
	assert.NoError(t, err)

	_, err = api.DecodeToken("other-secret", token)
	assert.Error(t, err)
}

func TestDecodeTokenGarbage(t *testing.T) {
	_, err := api.DecodeToken("secret", "not.a.token")
	assert.Error(t, err)
}
