// Package auth resolves bearer tokens to principals against the platform's auth
// service and carries the principal through gin.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/akylbek/payment-system/marketplace-payments/internal/models"
)

const userPath = "/auth/v1/user"

type PlatformAuthenticator struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewPlatformAuthenticator(baseURL, apiKey string, timeout time.Duration) *PlatformAuthenticator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PlatformAuthenticator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (a *PlatformAuthenticator) Authenticate(ctx context.Context, token string) (*models.Principal, error) {
	if token == "" {
		return nil, models.ErrUnauthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+userPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if a.apiKey != "" {
		req.Header.Set("apikey", a.apiKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, models.ErrUnauthenticated
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("auth service: unexpected status %d", resp.StatusCode)
	}

	var p models.Principal
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("auth service: decode user: %w", err)
	}
	if p.UserID == "" {
		return nil, models.ErrUnauthenticated
	}
	return &p, nil
}
