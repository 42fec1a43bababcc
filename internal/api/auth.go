package api

import (
	"context"
	"errors"
	"net/http"
)

// ErrNoAccessToken is returned when the login response carries no token.
var ErrNoAccessToken = errors.New("login response missing access token")

// loginRequest is the body for POST /user/login.
type loginRequest struct {
	ClientCode    string `json:"client_code"`
	Password      string `json:"password"`
	TOTP          string `json:"totp"`
	ApplicationID string `json:"application_id"`
}

// loginResponse mirrors the envelope the login endpoint returns.
type loginResponse struct {
	Status string     `json:"status"`
	Data   *loginData `json:"data"`
}

type loginData struct {
	AccessToken string `json:"access_token"`
}

// Login exchanges credentials for an access token. The token is kept
// on the client for subsequent authenticated calls and is also
// returned for use by the feed session.
func (c *Client) Login(ctx context.Context, clientCode, password, totp string) (string, error) {
	req := loginRequest{
		ClientCode:    clientCode,
		Password:      password,
		TOTP:          totp,
		ApplicationID: c.applicationID,
	}

	var resp loginResponse
	if err := c.post(ctx, "/user/login", req, &resp); err != nil {
		return "", err
	}

	if resp.Data == nil || resp.Data.AccessToken == "" {
		return "", ErrNoAccessToken
	}

	c.accessToken = resp.Data.AccessToken
	c.logger.Info("logged in", "client_code", clientCode)

	return c.accessToken, nil
}

// Logout invalidates the current session token.
func (c *Client) Logout(ctx context.Context) error {
	if c.accessToken == "" {
		return nil
	}

	if _, err := c.doWithRetry(ctx, http.MethodDelete, "/user/session", nil); err != nil {
		return err
	}

	c.accessToken = ""
	return nil
}
