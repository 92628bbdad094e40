// Package credential hashes account secrets and verifies them.
package credential

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/storefront/user-service/internal/apperr"
	"github.com/storefront/user-service/internal/clock"
	"github.com/storefront/user-service/internal/metrics"
	"github.com/storefront/user-service/internal/models"
)

// Accounts is the slice of the account store the verifier needs.
type Accounts interface {
	Get(id string) (models.Account, error)
	FindByEmail(email string) (models.Account, bool)
	Update(id string, mutate func(*models.Account) error) (models.Account, error)
}

type Verifier struct {
	accounts Accounts
	pool     *Pool
	clock    clock.Clock
	logger   *zap.Logger

	dummyOnce   sync.Once
	dummyDigest string
}

func NewVerifier(accounts Accounts, pool *Pool, clk clock.Clock, logger *zap.Logger) *Verifier {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{
		accounts: accounts,
		pool:     pool,
		clock:    clk,
		logger:   logger,
	}
}

// ValidateSecret checks the length bounds of a plaintext secret.
func ValidateSecret(secret string) error {
	if len(secret) < MinSecretLength {
		return apperr.Validation("password", fmt.Sprintf("password must be at least %d characters long", MinSecretLength))
	}
	if len(secret) > MaxSecretLength {
		return apperr.Validation("password", fmt.Sprintf("password must be at most %d bytes long", MaxSecretLength))
	}
	return nil
}

// HashSecret validates secret and returns its digest.
func (v *Verifier) HashSecret(ctx context.Context, secret string) (string, error) {
	if err := ValidateSecret(secret); err != nil {
		return "", err
	}
	digest, err := v.pool.Hash(ctx, secret)
	if err != nil {
		return "", fmt.Errorf("hash credential: %w", err)
	}
	return digest, nil
}

// SetCredential replaces the digest held for id.
func (v *Verifier) SetCredential(ctx context.Context, id, secret string) error {
	if err := ValidateSecret(secret); err != nil {
		return err
	}
	if _, err := v.accounts.Get(id); err != nil {
		return err
	}

	digest, err := v.HashSecret(ctx, secret)
	if err != nil {
		return err
	}

	_, err = v.accounts.Update(id, func(a *models.Account) error {
		a.CredentialHash = digest
		a.UpdatedAt = v.clock.Now()
		return nil
	})
	return err
}

// Verify reports whether secret matches the digest stored for id. Unknown
// ids, accounts without a credential and cancelled contexts all read false.
func (v *Verifier) Verify(ctx context.Context, id, secret string) bool {
	account, err := v.accounts.Get(id)
	if err != nil || !account.HasCredential() {
		return false
	}
	ok, err := v.pool.Compare(ctx, account.CredentialHash, secret)
	return err == nil && ok
}

// Authenticate resolves email and checks secret. Every failure returns
// apperr.ErrInvalidCredentials and an unknown email still costs one bcrypt
// comparison. Success refreshes lastActiveAt.
func (v *Verifier) Authenticate(ctx context.Context, email, secret string) (models.Profile, error) {
	account, found := v.accounts.FindByEmail(email)

	digest := v.dummy()
	if found && account.HasCredential() {
		digest = account.CredentialHash
	}

	ok, err := v.pool.Compare(ctx, digest, secret)
	if err != nil {
		metrics.AuthAttemptsTotal.WithLabelValues("error").Inc()
		return models.Profile{}, fmt.Errorf("compare credential: %w", err)
	}
	if !found || !account.HasCredential() || !ok {
		metrics.AuthAttemptsTotal.WithLabelValues("rejected").Inc()
		return models.Profile{}, apperr.ErrInvalidCredentials
	}

	now := v.clock.Now()
	account, err = v.accounts.Update(account.ID, func(a *models.Account) error {
		a.LastActiveAt = now
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			metrics.AuthAttemptsTotal.WithLabelValues("rejected").Inc()
			return models.Profile{}, apperr.ErrInvalidCredentials
		}
		return models.Profile{}, err
	}

	metrics.AuthAttemptsTotal.WithLabelValues("ok").Inc()
	return ProfileOf(account, now), nil
}

// ProfileOf builds the public profile returned on successful authentication.
func ProfileOf(account models.Account, now time.Time) models.Profile {
	return models.Profile{
		ID:               account.ID,
		Name:             account.Name,
		Email:            account.Email,
		Role:             account.Role,
		SubscriptionTier: account.SubscriptionTier,
		CanPlaceOrders:   account.CanPlaceOrders(now),
	}
}

func (v *Verifier) dummy() string {
	v.dummyOnce.Do(func() {
		digest, err := v.pool.hasher.Hash("unknown-account-placeholder")
		if err != nil {
			v.logger.Error("failed to build placeholder digest", zap.Error(err))
			return
		}
		v.dummyDigest = digest
	})
	return v.dummyDigest
}
