// Package api is the CLI's client for the portal REST endpoints and the
// gRPC health service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/bmd/internal/netx"
)

type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) LoggedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

func (c *Client) setToken(t string) {
	c.mu.Lock()
	c.token = t
	c.mu.Unlock()
}

func (c *Client) Logout() { c.setToken("") }

func (c *Client) Signup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	var res AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", req, &res, false); err != nil {
		return nil, err
	}
	c.setToken(res.AccessToken)
	return &res, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	body := map[string]string{"email": email, "password": password}
	var res AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &res, false); err != nil {
		return nil, err
	}
	c.setToken(res.AccessToken)
	return &res, nil
}

func (c *Client) Submit(ctx context.Context, s Submission) (*Receipt, error) {
	var res Receipt
	if err := c.do(ctx, http.MethodPost, "/api/workflows/submit", s, &res, true); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) List(ctx context.Context) ([]Workflow, error) {
	var res struct {
		Workflows []Workflow `json:"workflows"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/workflows", nil, &res, true); err != nil {
		return nil, err
	}
	return res.Workflows, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/workflows/"+url.PathEscape(id), nil, nil, true)
}

// CrateURL returns a presigned download URL for the workflow's RO-Crate.
func (c *Client) CrateURL(ctx context.Context, id string) (string, error) {
	var res struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/workflows/"+url.PathEscape(id)+"/crate", nil, &res, true); err != nil {
		return "", err
	}
	return res.URL, nil
}

// Download fetches a presigned URL into path.
func (c *Client) Download(ctx context.Context, url, path string) (int64, error) {
	n, err := netx.DownloadToFile(ctx, c.http, url, path)
	if err != nil {
		return 0, fmt.Errorf("download: %w", err)
	}
	return n, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, auth bool) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		c.mu.RLock()
		token := c.token
		c.mu.RUnlock()
		if token == "" {
			return ErrNotLoggedIn
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return responseError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func responseError(resp *http.Response) error {
	var e struct {
		Detail string `json:"detail"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &e); err != nil || e.Detail == "" {
		e.Detail = strings.TrimSpace(string(raw))
	}
	if e.Detail == "" {
		e.Detail = http.StatusText(resp.StatusCode)
	}

	apiErr := &APIError{StatusCode: resp.StatusCode, Detail: e.Detail}
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", ErrUnauthorized, apiErr)
	}
	return apiErr
}
