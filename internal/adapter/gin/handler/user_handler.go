package handler

import (
	"net/http"
	"strconv"

	"room-user-service/internal/adapter/gin/middleware"
	"room-user-service/internal/usecase/user"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	uc  user.Usecase
	log *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(uc user.Usecase, log *zap.Logger) *UserHandler {
	return &UserHandler{
		uc:  uc,
		log: log,
	}
}

// CreateUserRequest represents the HTTP request body for creating a user
type CreateUserRequest struct {
	Email             string `json:"email" binding:"required,email"`
	Password          string `json:"password" binding:"required"`
	FullName          string `json:"full_name" binding:"max=255"`
	IsActive          *bool  `json:"is_active"`
	IsSuperuser       bool   `json:"is_superuser"`
	IsOnboarding      bool   `json:"is_onboarding"`
	IsEmailValidation bool   `json:"is_email_validation"`
}

// UpdateMeRequest represents the HTTP request body for updating the caller's
// own profile. Absent fields keep their current value.
type UpdateMeRequest struct {
	Password *string `json:"password"`
	FullName *string `json:"full_name"`
	Email    *string `json:"email"`
}

// UpdateUserRequest represents the HTTP request body for updating a user.
// Absent fields keep their current value.
type UpdateUserRequest struct {
	Email             *string `json:"email"`
	Password          *string `json:"password"`
	FullName          *string `json:"full_name"`
	IsActive          *bool   `json:"is_active"`
	IsSuperuser       *bool   `json:"is_superuser"`
	IsOnboarding      *bool   `json:"is_onboarding"`
	IsEmailValidation *bool   `json:"is_email_validation"`
}

// OpenRegistrationRequest represents the HTTP request body for self-registration
type OpenRegistrationRequest struct {
	Email string `json:"email"`
}

// UserResponse represents the HTTP response for user data
type UserResponse struct {
	ID                uuid.UUID `json:"id"`
	Email             string    `json:"email"`
	FullName          string    `json:"full_name"`
	IsActive          bool      `json:"is_active"`
	IsSuperuser       bool      `json:"is_superuser"`
	IsOnboarding      bool      `json:"is_onboarding"`
	IsEmailValidation bool      `json:"is_email_validation"`
}

func toResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:                u.ID,
		Email:             u.Email,
		FullName:          u.FullName,
		IsActive:          u.IsActive,
		IsSuperuser:       u.IsSuperuser,
		IsOnboarding:      u.IsOnboarding,
		IsEmailValidation: u.IsEmailValidation,
	}
}

// ListUsers handles GET /api/v1/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		skip = 0
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(user.DefaultListLimit)))
	if err != nil || limit < 0 {
		limit = user.DefaultListLimit
	}

	users, err := h.uc.ListUsers(c.Request.Context(), middleware.CurrentUser(c), user.ListUsersRequest{
		Skip:  skip,
		Limit: limit,
	})
	if err != nil {
		h.handleError(c, "ListUsers", err)
		return
	}

	resp := make([]UserResponse, len(users))
	for i := range users {
		resp[i] = toResponse(&users[i])
	}
	c.JSON(http.StatusOK, resp)
}

// CreateUser handles POST /api/v1/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !h.bind(c, &req) {
		return
	}

	created, err := h.uc.CreateUser(c.Request.Context(), middleware.CurrentUser(c), user.CreateUserRequest{
		Email:             req.Email,
		Password:          req.Password,
		FullName:          req.FullName,
		IsActive:          req.IsActive,
		IsSuperuser:       req.IsSuperuser,
		IsOnboarding:      req.IsOnboarding,
		IsEmailValidation: req.IsEmailValidation,
	})
	if err != nil {
		h.handleError(c, "CreateUser", err)
		return
	}

	c.JSON(http.StatusOK, toResponse(created))
}

// UpdateMe handles PUT /api/v1/users/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req UpdateMeRequest
	if !h.bind(c, &req) {
		return
	}

	updated, err := h.uc.UpdateMe(c.Request.Context(), middleware.CurrentUser(c), user.UpdateMeRequest{
		Password: req.Password,
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		h.handleError(c, "UpdateMe", err)
		return
	}

	c.JSON(http.StatusOK, toResponse(updated))
}

// GetMe handles GET /api/v1/users/me
func (h *UserHandler) GetMe(c *gin.Context) {
	me, err := h.uc.GetMe(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		h.handleError(c, "GetMe", err)
		return
	}

	c.JSON(http.StatusOK, toResponse(me))
}

// CreateUserOpen handles POST /api/v1/users/open
func (h *UserHandler) CreateUserOpen(c *gin.Context) {
	var req OpenRegistrationRequest
	if !h.bind(c, &req) {
		return
	}

	created, err := h.uc.RegisterOpen(c.Request.Context(), user.OpenRegistrationRequest{Email: req.Email})
	if err != nil {
		h.handleError(c, "CreateUserOpen", err)
		return
	}

	c.JSON(http.StatusOK, toResponse(created))
}

// GetUser handles GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	u, err := h.uc.GetUser(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		h.handleError(c, "GetUser", err)
		return
	}

	c.JSON(http.StatusOK, toResponse(u))
}

// DeactivateUser handles GET /api/v1/users/:id/deactivate
func (h *UserHandler) DeactivateUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	u, err := h.uc.DeactivateUser(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		h.handleError(c, "DeactivateUser", err)
		return
	}

	c.JSON(http.StatusOK, toResponse(u))
}

// ActivateUser handles GET /api/v1/users/:id/activate
func (h *UserHandler) ActivateUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	u, err := h.uc.ActivateUser(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		h.handleError(c, "ActivateUser", err)
		return
	}

	c.JSON(http.StatusOK, toResponse(u))
}

// UpdateUser handles PUT /api/v1/users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req UpdateUserRequest
	if !h.bind(c, &req) {
		return
	}

	updated, err := h.uc.UpdateUser(c.Request.Context(), middleware.CurrentUser(c), user.UpdateUserRequest{
		ID:                id,
		Email:             req.Email,
		Password:          req.Password,
		FullName:          req.FullName,
		IsActive:          req.IsActive,
		IsSuperuser:       req.IsSuperuser,
		IsOnboarding:      req.IsOnboarding,
		IsEmailValidation: req.IsEmailValidation,
	})
	if err != nil {
		h.handleError(c, "UpdateUser", err)
		return
	}

	c.JSON(http.StatusOK, toResponse(updated))
}

func (h *UserHandler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.log.Warn("Invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadRequest, middleware.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return false
	}
	return true
}

func (h *UserHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		h.log.Warn("Invalid user ID", zap.String("id", idStr), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadRequest, middleware.ErrorResponse{
			Error:   "invalid_id",
			Message: "User ID must be a valid UUID",
		})
		return uuid.Nil, false
	}
	return id, true
}

// handleError converts usecase errors to appropriate HTTP responses
func (h *UserHandler) handleError(c *gin.Context, op string, err error) {
	h.log.Warn("Gin "+op+" failed", zap.Error(err))
	middleware.AbortWithError(c, err)
}
