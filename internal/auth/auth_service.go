// Package auth issues session tokens on top of credential verification.
package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/storefront/user-service/internal/apperr"
	"github.com/storefront/user-service/internal/cqrs"
	"github.com/storefront/user-service/internal/models"
)

// Authenticator checks an email and secret pair.
type Authenticator interface {
	Authenticate(ctx context.Context, email, secret string) (models.Profile, error)
}

// AccountLookup resolves the current state of a token's subject.
type AccountLookup interface {
	Get(id string) (models.Account, error)
}

type LoginResult struct {
	Token   string         `json:"token"`
	Profile models.Profile `json:"user"`
}

// AuthService has no command counterpart: apart from the activity refresh
// done by the authenticator, login and refresh do not mutate state.
type AuthService struct {
	authenticator Authenticator
	accounts      AccountLookup
	tokens        *Tokens
	logger        *zap.Logger
}

func NewAuthService(authenticator Authenticator, accounts AccountLookup, tokens *Tokens, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		authenticator: authenticator,
		accounts:      accounts,
		tokens:        tokens,
		logger:        logger,
	}
}

func (s *AuthService) Login(ctx context.Context, cmd cqrs.LoginCommand) (LoginResult, error) {
	profile, err := s.authenticator.Authenticate(ctx, cmd.Email, cmd.Password)
	if err != nil {
		return LoginResult{}, err
	}
	token, err := s.tokens.Issue(profile.ID, profile.Email, profile.Role)
	if err != nil {
		return LoginResult{}, err
	}
	s.logger.Info("login succeeded", zap.String("account_id", profile.ID))
	return LoginResult{Token: token, Profile: profile}, nil
}

// RefreshToken reissues a valid token with the subject's current email and
// role. Tokens of deleted or suspended accounts are rejected; inactive and
// unverified accounts may still refresh, since neither state revokes login.
func (s *AuthService) RefreshToken(cmd cqrs.RefreshTokenCommand) (string, error) {
	claims, err := s.tokens.Parse(cmd.Token)
	if err != nil {
		return "", err
	}
	account, err := s.accounts.Get(claims.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	if account.Status == models.StatusSuspended {
		s.logger.Info("refresh refused for suspended account", zap.String("account_id", account.ID))
		return "", ErrInvalidToken
	}
	return s.tokens.Issue(account.ID, account.Email, account.Role)
}
