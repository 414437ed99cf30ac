package auth

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testIssuer = "https://orcid.test"

type idTokenClaims struct {
	jwt.RegisteredClaims
	Nonce string `json:"nonce,omitempty"`
}

// newTestLinker wires a linker to an httptest token endpoint that answers
// with an ID token signed by key for the given nonce.
func newTestLinker(t *testing.T, nonce func() string) *ORCIDLinker {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" || r.Form.Get("code_verifier") == "" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}

		now := time.Now()
		idToken, err := jwt.NewWithClaims(jwt.SigningMethodRS256, idTokenClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    testIssuer,
				Subject:   "0000-0002-1825-0097",
				Audience:  jwt.ClaimStrings{"client-1"},
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
			Nonce: nonce(),
		}).SignedString(key)
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     idToken,
		})
	}))
	t.Cleanup(srv.Close)

	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	verifier := oidc.NewVerifier(testIssuer, keySet, &oidc.Config{ClientID: "client-1"})

	return newORCIDLinker(oauth2.Config{
		ClientID:     "client-1",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8080/auth/orcid/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  testIssuer + "/oauth/authorize",
			TokenURL: srv.URL + "/oauth/token",
		},
		Scopes: []string{oidc.ScopeOpenID},
	}, verifier)
}

func TestORCIDLinker_BeginBuildsAuthURL(t *testing.T) {
	l := newTestLinker(t, func() string { return "" })

	attempt, authURL, err := l.Begin()
	require.NoError(t, err)
	assert.Len(t, attempt.State, 32)
	assert.NotEmpty(t, attempt.Verifier)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, attempt.State, q.Get("state"))
	assert.Equal(t, attempt.Nonce, q.Get("nonce"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, "client-1", q.Get("client_id"))
}

func TestORCIDLinker_FinishReturnsSubject(t *testing.T) {
	var attempt LoginAttempt
	l := newTestLinker(t, func() string { return attempt.Nonce })

	var err error
	attempt, _, err = l.Begin()
	require.NoError(t, err)

	orcid, err := l.Finish(context.Background(), attempt, attempt.State, "good-code")
	require.NoError(t, err)
	assert.Equal(t, "0000-0002-1825-0097", orcid)
}

func TestORCIDLinker_FinishRejectsStateMismatch(t *testing.T) {
	l := newTestLinker(t, func() string { return "" })
	attempt, _, err := l.Begin()
	require.NoError(t, err)

	_, err = l.Finish(context.Background(), attempt, "other-state", "good-code")
	assert.True(t, errors.Is(err, ErrORCIDLogin))
}

func TestORCIDLinker_FinishRejectsNonceMismatch(t *testing.T) {
	l := newTestLinker(t, func() string { return "forged" })
	attempt, _, err := l.Begin()
	require.NoError(t, err)

	_, err = l.Finish(context.Background(), attempt, attempt.State, "good-code")
	assert.ErrorIs(t, err, ErrORCIDLogin)
}

func TestORCIDLinker_FinishRejectsBadCode(t *testing.T) {
	l := newTestLinker(t, func() string { return "" })
	attempt, _, err := l.Begin()
	require.NoError(t, err)

	_, err = l.Finish(context.Background(), attempt, attempt.State, "bad-code")
	assert.ErrorIs(t, err, ErrORCIDLogin)
}
