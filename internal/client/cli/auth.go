package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/bmd/internal/client/api"
)

// getPassword is an indirection so tests can avoid the terminal.
var getPassword = GetPassword

func (a *App) readCredentials() (string, []byte, error) {
	email, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return "", nil, err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return email, password, nil
}

// Signup prompts for account details and creates the account. The new
// session is kept, so the user is logged in afterwards.
func (a *App) Signup(ctx context.Context) error {
	email, password, err := a.readCredentials()
	if err != nil {
		return err
	}
	defer clear(password)

	name, err := GetSimpleText(a.reader, "Enter name", a.out)
	if err != nil {
		return err
	}
	orcid, err := GetOptionalText(a.reader, "Enter ORCID iD (optional)", "", a.out)
	if err != nil {
		return err
	}

	if _, err := a.api.Signup(ctx, api.SignupRequest{
		Email:    email,
		Password: string(password),
		Name:     name,
		ORCID:    orcid,
	}); err != nil {
		return err
	}

	a.setUser(email)
	fmt.Fprintln(a.out, "Account created, you are logged in")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, password, err := a.readCredentials()
	if err != nil {
		return err
	}
	defer clear(password)

	if _, err := a.api.Login(ctx, email, string(password)); err != nil {
		return err
	}

	a.setUser(email)
	fmt.Fprintln(a.out, "Login successful")
	return nil
}

func (a *App) Logout(context.Context) error {
	a.api.Logout()
	a.setUser("")
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) setUser(email string) {
	a.mu.Lock()
	a.email = email
	a.mu.Unlock()
}

// describe turns client errors into one-line user messages.
func describe(err error) string {
	var apiErr *api.APIError
	switch {
	case errors.Is(err, api.ErrNotLoggedIn):
		return "please log in first"
	case errors.Is(err, api.ErrUnavailable):
		return "server unavailable, try again later"
	case errors.As(err, &apiErr):
		return apiErr.Detail
	default:
		return err.Error()
	}
}
