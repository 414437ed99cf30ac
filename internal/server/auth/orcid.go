package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/dmitrijs2005/bmd/internal/common"
	"golang.org/x/oauth2"
)

// ORCIDConfig describes the OpenID Connect client registered with ORCID.
type ORCIDConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// LoginAttempt holds the per-login secrets that must survive the redirect
// round trip to the provider.
type LoginAttempt struct {
	State    string
	Nonce    string
	Verifier string
}

var ErrORCIDLogin = errors.New("orcid login failed")

// ORCIDLinker runs the authorization code flow (with PKCE and nonce) and
// returns the verified ORCID iD, which is the ID token subject.
type ORCIDLinker struct {
	oauth2Config oauth2.Config
	verifier     *oidc.IDTokenVerifier
}

func NewORCIDLinker(ctx context.Context, cfg ORCIDConfig) (*ORCIDLinker, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: %w", err)
	}

	oauthCfg := oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{oidc.ScopeOpenID},
	}

	return newORCIDLinker(oauthCfg, provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})), nil
}

func newORCIDLinker(oauthCfg oauth2.Config, verifier *oidc.IDTokenVerifier) *ORCIDLinker {
	return &ORCIDLinker{oauth2Config: oauthCfg, verifier: verifier}
}

// Begin starts a login and returns the provider URL to redirect to.
func (l *ORCIDLinker) Begin() (LoginAttempt, string, error) {
	state, err := common.MakeRandHexString(16)
	if err != nil {
		return LoginAttempt{}, "", err
	}
	nonce, err := common.MakeRandHexString(16)
	if err != nil {
		return LoginAttempt{}, "", err
	}

	attempt := LoginAttempt{State: state, Nonce: nonce, Verifier: oauth2.GenerateVerifier()}
	url := l.oauth2Config.AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oauth2.S256ChallengeOption(attempt.Verifier),
		oidc.Nonce(nonce),
	)
	return attempt, url, nil
}

// Finish exchanges the authorization code and returns the ORCID iD.
func (l *ORCIDLinker) Finish(ctx context.Context, attempt LoginAttempt, state, code string) (string, error) {
	if state == "" || code == "" || state != attempt.State {
		return "", fmt.Errorf("%w: invalid state", ErrORCIDLogin)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	token, err := l.oauth2Config.Exchange(ctx, code, oauth2.VerifierOption(attempt.Verifier))
	if err != nil {
		return "", fmt.Errorf("%w: token exchange: %v", ErrORCIDLogin, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return "", fmt.Errorf("%w: missing id_token", ErrORCIDLogin)
	}

	idToken, err := l.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrORCIDLogin, err)
	}
	if idToken.Nonce != attempt.Nonce {
		return "", fmt.Errorf("%w: nonce mismatch", ErrORCIDLogin)
	}

	return idToken.Subject, nil
}
