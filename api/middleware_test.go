package api_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cleanstreet/clean-street-api/api"
	"github.com/cleanstreet/clean-street-api/databases"
	"github.com/cleanstreet/clean-street-api/databases/mocks"
	"github.com/cleanstreet/clean-street-api/models"
)

func TestAuthMissingToken(t *testing.T) {
	m := api.Middleware{Secret: "secret"}

	req, _ := http.NewRequest("GET", "/api/complaints", nil)
	rr := httptest.NewRecorder()
	m.Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run without a token")
	})).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "access denied, no token provided")
}

func TestAuthMalformedToken(t *testing.T) {
	m := api.Middleware{Secret: "secret"}

	req, _ := http.NewRequest("GET", "/api/complaints", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr := httptest.NewRecorder()
	m.Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run with a malformed token")
	})).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid or expired token")
}

func TestAuthSessionToken(t *testing.T) {
	userID := primitive.NewObjectID()
	token, err := api.IssueSessionToken("secret", userID.Hex(), "admin", "dale@city.gov")
	assert.NoError(t, err)

	m := api.Middleware{Secret: "secret"}

	req, _ := http.NewRequest("GET", "/api/complaints", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	called := false
	m.Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		identity, ok := api.IdentityFromContext(r.Context())
		assert.True(t, ok)
		assert.Equal(t, userID, identity.ID)
		assert.Equal(t, "admin", identity.Role)
		assert.True(t, identity.IsAdmin())
	})).ServeHTTP(rr, req)

	assert.True(t, called, "next handler should have run")
}

func TestAuthLegacyTokenResolvesUser(t *testing.T) {
	userID := primitive.NewObjectID()
	token, err := api.IssueResetToken("secret", userID.Hex())
	assert.NoError(t, err)

	srh := &mocks.SingleResultHelper{}
	srh.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		out := args.Get(0).(*models.User)
		*out = models.User{ID: userID, Name: "Jane", Email: "jane@example.com", Role: "user"}
	})

	conn := &mocks.CollectionHelper{}
	conn.On("FindOne", mock.Anything, mock.Anything).Return(srh)

	db := &mocks.DatabaseHelper{}
	db.On("Collection", "users").Return(conn)

	m := api.Middleware{DB: databases.NewUserDatabase(db), Secret: "secret"}

	req, _ := http.NewRequest("GET", "/api/complaints", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	called := false
	m.Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		identity, ok := api.IdentityFromContext(r.Context())
		assert.True(t, ok)
		assert.Equal(t, userID, identity.ID)
		assert.Equal(t, "user", identity.Role)
		assert.Equal(t, "Jane", identity.Name)
	})).ServeHTTP(rr, req)

	assert.True(t, called, "next handler should have run")
}

func TestAuthLegacyTokenVanishedUser(t *testing.T) {
	token, err := api.IssueResetToken("secret", primitive.NewObjectID().Hex())
	assert.NoError(t, err)

	srh := &mocks.SingleResultHelper{}
	srh.On("Decode", mock.Anything).Return(mongo.ErrNoDocuments)

	conn := &mocks.CollectionHelper{}
	conn.On("FindOne", mock.Anything, mock.Anything).Return(srh)

	db := &mocks.DatabaseHelper{}
	db.On("Collection", "users").Return(conn)

	m := api.Middleware{DB: databases.NewUserDatabase(db), Secret: "secret"}

	req, _ := http.NewRequest("GET", "/api/complaints", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	m.Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run for a vanished user")
	})).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "user not found")
}

func TestRequireAdminRejectsNonAdmin(t *testing.T) {
	m := api.Middleware{}

	req, _ := http.NewRequest("GET", "/api/users/admin/list", nil)
	req = req.WithContext(api.SetIdentity(req.Context(), api.Identity{ID: primitive.NewObjectID(), Role: "user"}))
	rr := httptest.NewRecorder()
	m.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run for a non-admin")
	})).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "admin access required")
}

func TestRequireAdminAllowsAdmin(t *testing.T) {
	m := api.Middleware{}

	req, _ := http.NewRequest("GET", "/api/users/admin/list", nil)
	req = req.WithContext(api.SetIdentity(req.Context(), api.Identity{ID: primitive.NewObjectID(), Role: "admin"}))
	rr := httptest.NewRecorder()

	called := false
	m.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(rr, req)

	assert.True(t, called, "next handler should have run")
}
