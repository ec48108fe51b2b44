package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tasktracker/internal/apperr"
	"tasktracker/internal/middleware"
	"tasktracker/internal/models"
	"tasktracker/internal/service"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=3,max=64"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type loginRequest struct {
	// Username also accepts an email address.
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type accountResponse struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

func toAccountResponse(a models.Account) accountResponse {
	return accountResponse{ID: a.ID, Email: a.Email, Username: a.Username, Roles: a.Roles}
}

func (h HandlerSet) Register(c *gin.Context) {
	var req registerRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	if _, err := h.accounts.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	}); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusOK)
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	http.SetCookie(c.Writer, h.transport.Write(result.Token))
	c.JSON(http.StatusOK, toAccountResponse(result.Account))
}

func (h HandlerSet) Logout(c *gin.Context) {
	http.SetCookie(c.Writer, h.transport.Clear())
	c.Status(http.StatusOK)
}

func (h HandlerSet) ActivateAccount(c *gin.Context) {
	handle, err := readScalar(c, "uuid")
	if err != nil {
		_ = c.Error(err)
		return
	}

	ok, err := h.accounts.Activate(c.Request.Context(), handle)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ok)
}

func (h HandlerSet) ResendActivation(c *gin.Context) {
	login, err := readScalar(c, "usernameOrEmail")
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.accounts.ResendActivation(c.Request.Context(), login); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusOK)
}

// SendResetPassword always answers 200 for a well-formed request, whether or
// not the email is registered.
func (h HandlerSet) SendResetPassword(c *gin.Context) {
	email, err := readScalar(c, "email")
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.accounts.RequestPasswordReset(c.Request.Context(), email); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusOK)
}

func (h HandlerSet) UpdatePassword(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		_ = c.Error(apperr.ErrCredentialsNotFound)
		return
	}

	password, err := readScalar(c, "password")
	if err != nil {
		_ = c.Error(err)
		return
	}

	updated, err := h.accounts.UpdatePassword(c.Request.Context(), principal, password)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h HandlerSet) Me(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		_ = c.Error(apperr.ErrCredentialsNotFound)
		return
	}

	c.JSON(http.StatusOK, accountResponse{
		ID:       principal.AccountID,
		Email:    principal.Email,
		Username: principal.Username,
		Roles:    principal.Authorities,
	})
}

func (h HandlerSet) TestNoAuth(c *gin.Context) {
	c.String(http.StatusOK, "OK-no-auth")
}

func (h HandlerSet) TestWithAuth(c *gin.Context) {
	c.String(http.StatusOK, "OK-with-auth")
}
