package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storefront/user-service/internal/cqrs"
	"github.com/storefront/user-service/internal/models"
)

// AccountCommander defines the write-side operations used by AccountHandler.
type AccountCommander interface {
	CreateAccount(context.Context, cqrs.CreateAccountCommand) (models.AccountView, error)
	UpdateAccount(context.Context, cqrs.UpdateAccountCommand) (models.AccountView, error)
	DeleteAccount(context.Context, cqrs.DeleteAccountCommand) error
	ActivateAccount(ctx context.Context, id string) (models.AccountView, error)
	DeactivateAccount(ctx context.Context, id string) (models.AccountView, error)
	UpdateSubscription(context.Context, cqrs.UpdateSubscriptionCommand) (models.AccountView, error)
	SetCredential(context.Context, cqrs.SetCredentialCommand) error
	RecordOrder(context.Context, cqrs.RecordOrderCommand) (models.OrderCapacity, error)
	ResetMonthly(ctx context.Context) int
}

// AccountQuerier defines the read-side operations used by AccountHandler.
type AccountQuerier interface {
	GetAccount(cqrs.GetAccountQuery) (models.AccountView, error)
	ListAccounts() []models.AccountView
	ListOrderEligible() []models.AccountView
	ListPremium() []models.AccountView
	ListActive() []models.AccountView
	GetOrderCapacity(cqrs.GetOrderCapacityQuery) (models.OrderCapacity, error)
	GetAccountStatus(id string) (models.AccountStatusView, error)
	ValidateBatch(cqrs.ValidateBatchQuery) []models.BatchValidation
}

// AccountHandler routes requests to the command or query service as appropriate.
type AccountHandler struct {
	commands AccountCommander
	queries  AccountQuerier
}

// CreateAccountRequest carries no validate tags: the account model checks
// its fields in a fixed order and the first failure is what gets reported.
type CreateAccountRequest struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Status           string `json:"status"`
	Role             string `json:"role"`
	SubscriptionTier string `json:"subscriptionTier"`
	Password         string `json:"password"`
}

// UpdateAccountRequest carries only the fields to change. Like
// CreateAccountRequest it is validated by the model after the merge.
type UpdateAccountRequest struct {
	Name             *string `json:"name"`
	Email            *string `json:"email"`
	Status           *string `json:"status"`
	Role             *string `json:"role"`
	SubscriptionTier *string `json:"subscriptionTier"`
}

type UpdateSubscriptionRequest struct {
	SubscriptionTier string `json:"subscriptionTier" validate:"required,subscription_tier"`
}

type SetCredentialRequest struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type ValidateBatchRequest struct {
	UserIDs []string `json:"userIds" validate:"required,min=1,dive,required"`
}

func NewAccountHandler(commands AccountCommander, queries AccountQuerier) *AccountHandler {
	return &AccountHandler{commands: commands, queries: queries}
}

// Register mounts the account routes. Static segments are registered before
// the :id routes they would otherwise shadow.
func (h *AccountHandler) Register(rg *gin.RouterGroup) {
	rg.POST("", h.CreateAccount)
	rg.GET("", h.ListAccounts)
	rg.GET("/eligible/orders", h.ListOrderEligible)
	rg.GET("/premium/list", h.ListPremium)
	rg.GET("/active", h.ListActive)
	rg.POST("/validate-batch", h.ValidateBatch)
	rg.GET("/:id", h.GetAccount)
	rg.PATCH("/:id", h.UpdateAccount)
	rg.PUT("/:id", h.UpdateAccount)
	rg.DELETE("/:id", h.DeleteAccount)
	rg.GET("/:id/status", h.GetAccountStatus)
	rg.POST("/:id/activate", h.ActivateAccount)
	rg.POST("/:id/deactivate", h.DeactivateAccount)
	rg.PUT("/:id/subscription", h.UpdateSubscription)
	rg.PUT("/:id/credential", h.SetCredential)
	rg.GET("/:id/order-capacity", h.GetOrderCapacity)
	rg.POST("/:id/record-order", h.RecordOrder)
}

func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.commands.CreateAccount(c.Request.Context(), cqrs.CreateAccountCommand{
		Name:     req.Name,
		Email:    req.Email,
		Status:   models.Status(req.Status),
		Role:     models.Role(req.Role),
		Tier:     models.Tier(req.SubscriptionTier),
		Password: req.Password,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

func (h *AccountHandler) GetAccount(c *gin.Context) {
	view, err := h.queries.GetAccount(cqrs.GetAccountQuery{AccountID: c.Param("id")})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *AccountHandler) ListAccounts(c *gin.Context) {
	c.JSON(http.StatusOK, h.queries.ListAccounts())
}

func (h *AccountHandler) ListOrderEligible(c *gin.Context) {
	c.JSON(http.StatusOK, h.queries.ListOrderEligible())
}

func (h *AccountHandler) ListPremium(c *gin.Context) {
	c.JSON(http.StatusOK, h.queries.ListPremium())
}

func (h *AccountHandler) ListActive(c *gin.Context) {
	c.JSON(http.StatusOK, h.queries.ListActive())
}

func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	var req UpdateAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := cqrs.UpdateAccountCommand{
		AccountID: c.Param("id"),
		Name:      req.Name,
		Email:     req.Email,
	}
	if req.Status != nil {
		status := models.Status(*req.Status)
		cmd.Status = &status
	}
	if req.Role != nil {
		role := models.Role(*req.Role)
		cmd.Role = &role
	}
	if req.SubscriptionTier != nil {
		tier := models.Tier(*req.SubscriptionTier)
		cmd.Tier = &tier
	}

	view, err := h.commands.UpdateAccount(c.Request.Context(), cmd)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	if err := h.commands.DeleteAccount(c.Request.Context(), cqrs.DeleteAccountCommand{AccountID: c.Param("id")}); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AccountHandler) GetAccountStatus(c *gin.Context) {
	status, err := h.queries.GetAccountStatus(c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *AccountHandler) ActivateAccount(c *gin.Context) {
	view, err := h.commands.ActivateAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *AccountHandler) DeactivateAccount(c *gin.Context) {
	view, err := h.commands.DeactivateAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *AccountHandler) UpdateSubscription(c *gin.Context) {
	var req UpdateSubscriptionRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := h.commands.UpdateSubscription(c.Request.Context(), cqrs.UpdateSubscriptionCommand{
		AccountID: c.Param("id"),
		Tier:      models.Tier(req.SubscriptionTier),
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *AccountHandler) SetCredential(c *gin.Context) {
	var req SetCredentialRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.commands.SetCredential(c.Request.Context(), cqrs.SetCredentialCommand{
		AccountID: c.Param("id"),
		Secret:    req.Password,
	}); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AccountHandler) GetOrderCapacity(c *gin.Context) {
	capacity, err := h.queries.GetOrderCapacity(cqrs.GetOrderCapacityQuery{AccountID: c.Param("id")})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, capacity)
}

func (h *AccountHandler) RecordOrder(c *gin.Context) {
	capacity, err := h.commands.RecordOrder(c.Request.Context(), cqrs.RecordOrderCommand{AccountID: c.Param("id")})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, capacity)
}

func (h *AccountHandler) ValidateBatch(c *gin.Context) {
	var req ValidateBatchRequest
	if !bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.queries.ValidateBatch(cqrs.ValidateBatchQuery{AccountIDs: req.UserIDs}))
}

// ResetMonthly is mounted on the admin group.
func (h *AccountHandler) ResetMonthly(c *gin.Context) {
	n := h.commands.ResetMonthly(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"recordsReset": n})
}
