package api

import (
	"net/http"
	"testing"

	"resumate/internal/auth"
	"resumate/internal/database"
)

func TestRegisterCreatesUserAndProfile(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(nil, http.MethodPost, "/api/auth/register", map[string]any{
		"email":    "Ada@Example.com",
		"password": "correct horse",
		"name":     "Ada",
	})
	expectStatus(t, w, http.StatusCreated)
	got := decode[userResponse](t, w)
	if got.Email != "ada@example.com" || got.Name != "Ada" {
		t.Fatalf("unexpected user %+v", got)
	}

	var user database.User
	if err := env.db.Preload("Profile").First(&user, got.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if user.Profile == nil || user.Profile.Email != "ada@example.com" {
		t.Fatalf("expected an empty profile, got %+v", user.Profile)
	}
	if user.PasswordHash == "correct horse" || !auth.CheckPasswordHash("correct horse", user.PasswordHash) {
		t.Fatal("password must be stored as a bcrypt hash")
	}

	w = env.do(nil, http.MethodPost, "/api/auth/register", map[string]any{
		"email":    "ada@example.com",
		"password": "another password",
	})
	expectStatus(t, w, http.StatusConflict)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(nil, http.MethodPost, "/api/auth/register", map[string]any{
		"email":    "not-an-email",
		"password": "short",
	})
	expectStatus(t, w, http.StatusBadRequest)
	body := decode[validationBody](t, w)
	if !body.has("email") || !body.has("password") {
		t.Fatalf("expected email and password details, got %+v", body.Details)
	}
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	env := newTestEnv(t)
	ada := env.newUser("ada@example.com")

	pair, err := env.auth.GenerateTokenPair(ada.ID)
	if err != nil {
		t.Fatalf("token pair: %v", err)
	}
	ada.Token = pair.RefreshToken
	expectStatus(t, env.do(&ada, http.MethodGet, "/api/profile", nil), http.StatusUnauthorized)
}

func TestGoogleLoginDisabled(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(nil, http.MethodGet, "/api/auth/google/login", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected google login to be unavailable, got %d", w.Code)
	}
}

func TestLoginIssuesUsableAccessToken(t *testing.T) {
	env := newTestEnv(t)

	expectStatus(t, env.do(nil, http.MethodPost, "/api/auth/register", map[string]any{
		"email":    "grace@example.com",
		"password": "compiler first",
	}), http.StatusCreated)

	w := env.do(nil, http.MethodPost, "/api/auth/login", map[string]any{
		"email":    "grace@example.com",
		"password": "wrong password",
	})
	expectStatus(t, w, http.StatusUnauthorized)

	w = env.do(nil, http.MethodPost, "/api/auth/login", map[string]any{
		"email":    "GRACE@example.com",
		"password": "compiler first",
	})
	expectStatus(t, w, http.StatusOK)
	tokens := decode[tokenResponse](t, w)
	if tokens.AccessToken == "" || tokens.TokenType != "Bearer" {
		t.Fatalf("unexpected token response %+v", tokens)
	}

	grace := testUser{Token: tokens.AccessToken}
	expectStatus(t, env.do(&grace, http.MethodGet, "/api/profile", nil), http.StatusOK)
}
