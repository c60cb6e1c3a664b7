package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "skybook/internal/errors"
	"skybook/internal/models"
)

// UserClient validates account identities against the user service,
// forwarding the caller's bearer credential.
type UserClient struct {
	baseURL    string
	httpClient *http.Client
}

type UserConfig struct {
	BaseURL string
	Timeout time.Duration
}

func NewUserClient(cfg UserConfig) *UserClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &UserClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// FetchUser returns the account or ErrUserNotFound.
func (uc *UserClient) FetchUser(ctx context.Context, token string, userID int64) (*models.RemoteUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/user/%d", uc.baseURL, userID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := uc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch user %d: %v", apperrors.ErrUpstreamUnavailable, userID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, apperrors.ErrUserNotFound
	default:
		return nil, fmt.Errorf("%w: fetch user %d: unexpected status code %d", apperrors.ErrUpstreamUnavailable, userID, resp.StatusCode)
	}

	var user models.RemoteUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: decode user %d: %v", apperrors.ErrUpstreamUnavailable, userID, err)
	}

	return &user, nil
}

// ValidateUser reports whether the user id resolves to a live account.
func (uc *UserClient) ValidateUser(ctx context.Context, token string, userID int64) error {
	_, err := uc.FetchUser(ctx, token, userID)
	return err
}
