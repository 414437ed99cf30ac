package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", time.Second)
}

func TestClient_LoginStoresToken(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "a@b.org", body["email"])
			assert.Equal(t, "secret1", body["password"])
			_ = json.NewEncoder(w).Encode(AuthResult{AccessToken: "tok", UserID: "u1"})
		case "/api/workflows":
			gotAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`{"workflows":[{"workflow_id":"wf-1","name":"n","status":"running"}]}`))
		default:
			http.NotFound(w, r)
		}
	})

	assert.False(t, c.LoggedIn())
	res, err := c.Login(context.Background(), "a@b.org", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "u1", res.UserID)
	assert.True(t, c.LoggedIn())

	list, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "wf-1", list[0].ID)
	assert.Equal(t, "Bearer tok", gotAuth)

	c.Logout()
	assert.False(t, c.LoggedIn())
	_, err = c.List(context.Background())
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestClient_SignupAndSubmit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/signup":
			var req SignupRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "Ada", req.Name)
			_ = json.NewEncoder(w).Encode(AuthResult{AccessToken: "tok", UserID: "u1"})
		case "/api/workflows/submit":
			var s Submission
			require.NoError(t, json.NewDecoder(r.Body).Decode(&s))
			assert.Equal(t, "Procyon lotor", s.SpeciesName)
			assert.Equal(t, []string{"union"}, s.Parameters.DirectiveTypes)
			_ = json.NewEncoder(w).Encode(Receipt{WorkflowID: "wf-9", Status: "submitted"})
		}
	})

	_, err := c.Signup(context.Background(), SignupRequest{Email: "a@b.org", Password: "secret1", Name: "Ada"})
	require.NoError(t, err)

	rec, err := c.Submit(context.Background(), Submission{
		Name:        "run",
		SpeciesName: "Procyon lotor",
		Parameters:  Parameters{TimePeriod: "1981-2010", DirectiveTypes: []string{"union"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "wf-9", rec.WorkflowID)
}

func TestClient_ErrorMapping(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Invalid credentials"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Workflow not found"}`))
		}
	})

	_, err := c.Login(context.Background(), "a@b.org", "bad")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Invalid credentials", apiErr.Detail)
	assert.False(t, c.LoggedIn())

	c.setToken("tok")
	err = c.Delete(context.Background(), "nope")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "404: Workflow not found", apiErr.Error())
}

func TestClient_PlainTextErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	c.setToken("tok")

	_, err := c.List(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Bad Gateway", apiErr.Detail)
}

func TestClient_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, 200*time.Millisecond)
	_, err := c.Login(context.Background(), "a@b.org", "x")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_CrateDownload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/workflows/wf-1/crate":
			_, _ = w.Write([]byte(`{"url":"` + "http://" + r.Host + `/bucket/wf-1.zip?sig=x"}`))
		case "/bucket/wf-1.zip":
			_, _ = w.Write([]byte("zipdata"))
		default:
			http.NotFound(w, r)
		}
	})
	c.setToken("tok")

	u, err := c.CrateURL(context.Background(), "wf-1")
	require.NoError(t, err)
	assert.Contains(t, u, "/bucket/wf-1.zip")

	path := filepath.Join(t.TempDir(), "wf-1.zip")
	n, err := c.Download(context.Background(), u, path)
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)

	_, err = c.Download(context.Background(), strings.Replace(u, "wf-1.zip", "nope.zip", 1), path)
	require.Error(t, err)
}
