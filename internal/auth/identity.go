package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	identityAPIBase    = "https://identitytoolkit.googleapis.com/v1"
	secureTokenAPIBase = "https://securetoken.googleapis.com/v1"
)

// APIError is a non-2xx response from the identity REST API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("identity API error: status %d", e.Status)
	}
	return fmt.Sprintf("identity API error: status %d: %s", e.Status, e.Message)
}

// InvalidCredentials reports whether the API rejected the email or password.
func (e *APIError) InvalidCredentials() bool {
	switch strings.SplitN(e.Message, " ", 2)[0] {
	case "INVALID_PASSWORD", "EMAIL_NOT_FOUND", "INVALID_LOGIN_CREDENTIALS", "INVALID_EMAIL":
		return true
	}
	return false
}

// IdentityClient wraps the Firebase Auth REST API used by the login surface.
type IdentityClient struct {
	apiKey       string
	httpClient   *http.Client
	identityBase string
	tokenBase    string
	now          func() time.Time
}

// NewIdentityClient creates a client for the project's web API key.
func NewIdentityClient(apiKey string) *IdentityClient {
	return &IdentityClient{
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		identityBase: identityAPIBase,
		tokenBase:    secureTokenAPIBase,
		now:          time.Now,
	}
}

// WithEndpoints points the client at other API hosts, such as the Auth
// emulator.
func (c *IdentityClient) WithEndpoints(identityBase, tokenBase string) *IdentityClient {
	c.identityBase = strings.TrimRight(identityBase, "/")
	c.tokenBase = strings.TrimRight(tokenBase, "/")
	return c
}

type signInResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type refreshResponse struct {
	UserID       string `json:"user_id"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SignInWithPassword exchanges an email and password for a credential.
func (c *IdentityClient) SignInWithPassword(ctx context.Context, email, password string) (*Credential, error) {
	body, err := json.Marshal(map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
	if err != nil {
		return nil, fmt.Errorf("request encoding failed: %w", err)
	}

	reqURL := fmt.Sprintf("%s/accounts:signInWithPassword?%s", c.identityBase, c.keyParam())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request creation failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result signInResponse
	if err := c.do(req, &result); err != nil {
		return nil, err
	}

	return &Credential{
		UID:          result.LocalID,
		Email:        result.Email,
		IDToken:      result.IDToken,
		RefreshToken: result.RefreshToken,
		ExpiresAt:    c.expiry(result.ExpiresIn),
	}, nil
}

// Refresh exchanges a refresh token for a new ID token. Email is not part of
// the response and is left empty.
func (c *IdentityClient) Refresh(ctx context.Context, refreshToken string) (*Credential, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	reqURL := fmt.Sprintf("%s/token?%s", c.tokenBase, c.keyParam())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("request creation failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var result refreshResponse
	if err := c.do(req, &result); err != nil {
		return nil, err
	}

	return &Credential{
		UID:          result.UserID,
		IDToken:      result.IDToken,
		RefreshToken: result.RefreshToken,
		ExpiresAt:    c.expiry(result.ExpiresIn),
	}, nil
}

func (c *IdentityClient) keyParam() string {
	params := url.Values{}
	params.Set("key", c.apiKey)
	return params.Encode()
}

func (c *IdentityClient) expiry(expiresIn string) time.Time {
	secs, err := strconv.Atoi(expiresIn)
	if err != nil || secs <= 0 {
		secs = 3600
	}
	return c.now().Add(time.Duration(secs) * time.Second)
}

func (c *IdentityClient) do(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e errorResponse
		if json.NewDecoder(resp.Body).Decode(&e) == nil {
			apiErr.Message = e.Error.Message
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("JSON decode error: %w", err)
	}
	return nil
}
