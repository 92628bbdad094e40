package cqrs

import "github.com/storefront/user-service/internal/models"

// CreateAccountCommand leaves Status, Role and Tier empty to take the defaults.
// Password is optional; when set it becomes the account's first credential.
type CreateAccountCommand struct {
	Name     string
	Email    string
	Status   models.Status
	Role     models.Role
	Tier     models.Tier
	Password string
}

// UpdateAccountCommand applies only the non-nil fields.
type UpdateAccountCommand struct {
	AccountID string
	Name      *string
	Email     *string
	Status    *models.Status
	Role      *models.Role
	Tier      *models.Tier
}

type DeleteAccountCommand struct {
	AccountID string
}

type UpdateSubscriptionCommand struct {
	AccountID string
	Tier      models.Tier
}

type SetCredentialCommand struct {
	AccountID string
	Secret    string
}

type RecordOrderCommand struct {
	AccountID string
}

type LoginCommand struct {
	Email    string
	Password string
}

type RefreshTokenCommand struct {
	Token string
}
