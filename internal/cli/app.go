package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/kallerud/lotline/internal/api"
	"github.com/kallerud/lotline/internal/config"
)

// newAPIClient builds a backend client from config and the stored
// session token.
func newAPIClient(cfg *config.Config) (*api.Client, error) {
	if cfg.Server.BaseURL == "" {
		return nil, fmt.Errorf("server.base_url is not configured (set it in config.yaml or LOTLINE_SERVER_BASE_URL)")
	}

	token, err := cfg.ReadSessionToken()
	if err != nil {
		if errors.Is(err, config.ErrNoSession) {
			return nil, fmt.Errorf("not logged in, run `lotline login` first")
		}
		return nil, err
	}

	return api.NewClient(api.Config{
		BaseURL:      cfg.Server.BaseURL,
		SessionToken: token,
		Timeout:      cfg.Server.Timeout,
	})
}

// currentUser resolves the logged-in participant via the backend.
func currentUser(ctx context.Context, client *api.Client) (string, error) {
	user, err := client.CurrentUser(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return "", fmt.Errorf("session expired, run `lotline login` again")
		}
		return "", fmt.Errorf("resolve current user: %w", err)
	}
	return user.ID, nil
}
