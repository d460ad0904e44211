package handler

import (
	"net/http"

	"room-user-service/internal/adapter/gin/middleware"
	"room-user-service/internal/usecase/user"
	pkgerrors "room-user-service/pkg/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoginHandler handles the token and password recovery endpoints.
type LoginHandler struct {
	uc  user.Usecase
	log *zap.Logger
}

// NewLoginHandler creates a new LoginHandler instance
func NewLoginHandler(uc user.Usecase, log *zap.Logger) *LoginHandler {
	return &LoginHandler{uc: uc, log: log}
}

// LoginForm is the OAuth2 password grant form.
type LoginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Msg string `json:"msg"`
}

// ResetPasswordRequest represents the HTTP request body for a password reset
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ValidateEmailRequest represents the HTTP request body for email validation
type ValidateEmailRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AccessToken handles POST /api/v1/login/access-token
func (h *LoginHandler) AccessToken(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		h.badRequest(c, err)
		return
	}

	token, err := h.uc.Login(c.Request.Context(), user.LoginRequest{
		Email:    form.Username,
		Password: form.Password,
	})
	if err != nil {
		h.handleError(c, "AccessToken", err)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
	})
}

// TestToken handles POST /api/v1/login/test-token
func (h *LoginHandler) TestToken(c *gin.Context) {
	caller := middleware.CurrentUser(c)
	if caller == nil {
		middleware.AbortWithError(c, pkgerrors.NewUnauthorizedError("not authenticated"))
		return
	}

	c.JSON(http.StatusOK, toResponse(&user.User{
		ID:                caller.ID,
		Email:             caller.Email,
		FullName:          caller.FullName,
		IsActive:          caller.IsActive,
		IsSuperuser:       caller.IsSuperuser,
		IsOnboarding:      caller.IsOnboarding,
		IsEmailValidation: caller.IsEmailValidation,
	}))
}

// RecoverPassword handles POST /api/v1/password-recovery/:email
func (h *LoginHandler) RecoverPassword(c *gin.Context) {
	msg, err := h.uc.RecoverPassword(c.Request.Context(), c.Param("email"))
	if err != nil {
		h.handleError(c, "RecoverPassword", err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Msg: msg.Msg})
}

// ResetPassword handles POST /api/v1/reset-password
func (h *LoginHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	msg, err := h.uc.ResetPassword(c.Request.Context(), user.ResetPasswordRequest{
		Token:       req.Token,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		h.handleError(c, "ResetPassword", err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Msg: msg.Msg})
}

// ValidateEmail handles POST /api/v1/email-valid
func (h *LoginHandler) ValidateEmail(c *gin.Context) {
	var req ValidateEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	msg, err := h.uc.ValidateEmail(c.Request.Context(), user.ValidateEmailRequest{
		Token:    req.Token,
		Password: req.Password,
	})
	if err != nil {
		h.handleError(c, "ValidateEmail", err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Msg: msg.Msg})
}

func (h *LoginHandler) badRequest(c *gin.Context, err error) {
	h.log.Warn("Invalid request", zap.String("path", c.FullPath()), zap.Error(err))
	c.AbortWithStatusJSON(http.StatusBadRequest, middleware.ErrorResponse{
		Error:   "validation_error",
		Message: err.Error(),
	})
}

func (h *LoginHandler) handleError(c *gin.Context, op string, err error) {
	h.log.Warn("Gin "+op+" failed", zap.Error(err))
	middleware.AbortWithError(c, err)
}
