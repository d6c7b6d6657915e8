package foodtrack

import (
	"context"
	"net/http"
	"strings"

	"github.com/vango-go/foodtrack/pkg/core"
	"github.com/vango-go/foodtrack/pkg/core/types"
)

// AuthService handles login against the backend.
type AuthService struct {
	client *Client
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges email and password for a token and user record. On success
// the token is also installed on the client for later calls.
func (s *AuthService) Login(ctx context.Context, email, password string) (*types.Credentials, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, core.NewInvalidRequestError("email and password are required")
	}

	var creds types.Credentials
	if err := s.client.doJSON(ctx, http.MethodPost, "/api/auth/login", loginRequest{Email: email, Password: password}, &creds); err != nil {
		return nil, err
	}
	if strings.TrimSpace(creds.Token) == "" {
		return nil, core.NewAuthenticationError("login response carried no token")
	}
	s.client.SetToken(creds.Token)
	s.client.logger.Info().Str("user_id", creds.User.ID).Msg("logged in")
	return &creds, nil
}
