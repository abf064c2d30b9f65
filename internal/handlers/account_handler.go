package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "fundledger/internal/errors"
	"fundledger/internal/models"
	"fundledger/internal/services"
)

// AccountHandler serves the chart of accounts.
type AccountHandler struct {
	accountService services.AccountServicer
	auditService   services.AuditServicer
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService services.AccountServicer, auditService services.AuditServicer) *AccountHandler {
	return &AccountHandler{accountService: accountService, auditService: auditService}
}

// CreateAccountRequest represents the request payload for creating an account.
type CreateAccountRequest struct {
	AccountCode  string           `json:"account_code" binding:"required,min=1,max=50"`
	AccountName  string           `json:"account_name" binding:"required,min=1,max=100"`
	ParentCode   *string          `json:"parent_code" binding:"omitempty,max=50"`
	DisplayAs    models.DisplayAs `json:"display_as" binding:"omitempty,display_as"`
	Description  string           `json:"description" binding:"max=500"`
	IsActive     *bool            `json:"is_active"`
	DisplayOrder int              `json:"display_order" binding:"gte=0"`
}

// UpdateAccountRequest represents the request payload for updating an account.
// The account code cannot be changed.
type UpdateAccountRequest struct {
	AccountName  *string           `json:"account_name" binding:"omitempty,min=1,max=100"`
	ParentCode   *string           `json:"parent_code" binding:"omitempty,max=50"`
	DisplayAs    *models.DisplayAs `json:"display_as" binding:"omitempty,display_as"`
	Description  *string           `json:"description" binding:"omitempty,max=500"`
	IsActive     *bool             `json:"is_active"`
	DisplayOrder *int              `json:"display_order" binding:"omitempty,gte=0"`
}

// DeleteAccountRequest selects what happens to the account's transactions.
type DeleteAccountRequest struct {
	Action     services.DeleteAction `json:"action" form:"action" binding:"omitempty,oneof=transfer cascade"`
	TargetCode string                `json:"target_code" form:"target_code"`
}

// ListAccounts returns the chart of accounts.
// @Summary     List accounts
// @Description List the chart of accounts ordered by display order then name
// @Tags        chart-of-accounts
// @Produce     json
// @Security    BearerAuth
// @Param       active query bool false "Only active accounts"
// @Success     200 {object} map[string]interface{} "{success, data: [account]}"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /chart-of-accounts [get]
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	activeOnly := c.Query("active") == "true"

	accounts, err := h.accountService.ListAccounts(activeOnly)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": accounts})
}

// GetAccount returns one account.
// @Summary     Get account
// @Tags        chart-of-accounts
// @Produce     json
// @Security    BearerAuth
// @Param       code path string true "Account code"
// @Success     200 {object} map[string]interface{} "{success, data: account}"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /chart-of-accounts/{code} [get]
func (h *AccountHandler) GetAccount(c *gin.Context) {
	code, err := parsePathID(c, "code")
	if err != nil {
		respondWithError(c, err)
		return
	}

	account, err := h.accountService.GetAccount(code)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": account})
}

// CreateAccount adds an account to the chart.
// @Summary     Create account
// @Description Create a category, or a subcategory when parent_code is set
// @Tags        chart-of-accounts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateAccountRequest true "Account details"
// @Success     201 {object} map[string]interface{} "{success, data: account}"
// @Failure     400 {object} ErrorResponse "Invalid input or parent"
// @Failure     409 {object} ErrorResponse "Duplicate account code"
// @Router      /chart-of-accounts [post]
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	account, err := h.accountService.CreateAccount(services.AccountInput{
		Code:         req.AccountCode,
		Name:         req.AccountName,
		ParentCode:   req.ParentCode,
		DisplayAs:    req.DisplayAs,
		Description:  req.Description,
		IsActive:     req.IsActive,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_ACCOUNT", "account", account.Code, c.ClientIP(),
		map[string]interface{}{"name": account.Name, "display_as": account.DisplayAs, "parent_code": account.Parent()})

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": account})
}

// UpdateAccount changes an account.
// @Summary     Update account
// @Tags        chart-of-accounts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       code    path string               true "Account code"
// @Param       request body UpdateAccountRequest true "Fields to update"
// @Success     200 {object} map[string]interface{} "{success, data: account}"
// @Failure     400 {object} ErrorResponse "Invalid input or parent"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     409 {object} ErrorResponse "Category still has subcategories"
// @Router      /chart-of-accounts/{code} [put]
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	code, err := parsePathID(c, "code")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	account, err := h.accountService.UpdateAccount(code, services.AccountUpdate{
		Name:         req.AccountName,
		ParentCode:   req.ParentCode,
		DisplayAs:    req.DisplayAs,
		Description:  req.Description,
		IsActive:     req.IsActive,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_ACCOUNT", "account", code, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"success": true, "data": account})
}

// DeleteAccount removes an account. Accounts used by transactions need an
// action: transfer moves them to target_code, cascade deletes them.
// @Summary     Delete account
// @Tags        chart-of-accounts
// @Produce     json
// @Security    BearerAuth
// @Param       code        path  string true  "Account code"
// @Param       action      query string false "transfer or cascade"
// @Param       target_code query string false "Destination account for transfer"
// @Success     200 {object} map[string]interface{} "{success, data: delete result}"
// @Failure     400 {object} ErrorResponse "Transfer target required"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     409 {object} ErrorResponse "Account in use or has subcategories"
// @Router      /chart-of-accounts/{code} [delete]
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	code, err := parsePathID(c, "code")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req DeleteAccountRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	if req.Action == "" && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
			return
		}
	}

	result, err := h.accountService.DeleteAccount(userID, code, req.Action, req.TargetCode)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "DELETE_ACCOUNT", "account", code, c.ClientIP(),
		map[string]interface{}{"action": req.Action, "target_code": req.TargetCode})

	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}
