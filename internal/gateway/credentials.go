package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tinytelemetry/vwatch/internal/model"
)

// ErrEmptyToken is returned before any network call for a blank token.
var ErrEmptyToken = errors.New("token is required")

type tokenRequest struct {
	Token string `json:"token"`
}

// SetVercelToken submits token for validation and persists it on success.
// A transport or HTTP failure returns false with the error; nothing is saved.
func (g *Gateway) SetVercelToken(ctx context.Context, token string) (bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return false, ErrEmptyToken
	}
	var env model.Envelope[bool]
	if err := g.do(ctx, http.MethodPost, "/auth/vercel", tokenRequest{Token: token}, &env); err != nil {
		return false, err
	}
	if !env.Success {
		return false, nil
	}
	if err := g.creds.SetToken(token); err != nil {
		return false, fmt.Errorf("persist token: %w", err)
	}
	return true, nil
}

// ValidateToken re-checks the stored token. Any failure counts as invalid.
func (g *Gateway) ValidateToken(ctx context.Context) bool {
	if !g.HasToken() {
		return false
	}
	var env model.Envelope[bool]
	if err := g.do(ctx, http.MethodGet, "/auth/validate", nil, &env); err != nil {
		g.log.WithError(err).Debug("token validation failed")
		return false
	}
	return env.Success && env.Data
}

// Logout removes the stored token.
func (g *Gateway) Logout() error {
	return g.creds.ClearToken()
}
