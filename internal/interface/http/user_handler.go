package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/teamnext/accounts-api/internal/application"
	"github.com/teamnext/accounts-api/internal/interface/middleware"
	"github.com/teamnext/accounts-api/pkg/response"
	"github.com/teamnext/accounts-api/pkg/validation"
)

// UserHandler exposes the account CRUD plus the token-gated identity
// endpoints.
type UserHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
}

func NewUserHandler(svc *application.Service, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

type updateUserRequest struct {
	Name        string `json:"name" binding:"required"`
	Age         int    `json:"age" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Gender      string `json:"gender" binding:"required"`
	PhoneNumber string `json:"phone_number" binding:"required,phone10"`
}

// Me GET /api/me — identity derived from the bearer token.
func (h *UserHandler) Me(c *gin.Context) {
	token := c.GetString(middleware.CtxTokenKey)
	u, err := h.Svc.CurrentUser(c.Request.Context(), token)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"username": u.Username,
		"user":     u.Public(),
	}, "current user", nil)
}

// Logout POST /api/logout — revokes the caller's own token.
func (h *UserHandler) Logout(c *gin.Context) {
	token := c.GetString(middleware.CtxTokenKey)
	username := c.GetString(middleware.CtxUsernameKey)
	h.Svc.Logout(c.Request.Context(), token, username)
	response.Success[any](c, http.StatusOK, gin.H{"logged_out": true}, "logged out successfully", nil)
}

// List GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.Svc.ListUsers(c.Request.Context())
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"users": users}, "users retrieved successfully", nil)
}

// Get GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.Svc.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, u, "user retrieved successfully", nil)
}

// Update PUT /api/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	u, err := h.Svc.UpdateUser(c.Request.Context(), c.Param("id"), application.UpdateUserInput{
		Name:        req.Name,
		Age:         req.Age,
		Email:       req.Email,
		Gender:      req.Gender,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, u, "user updated successfully", nil)
}

// Delete DELETE /api/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.Svc.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "user deleted successfully", nil)
}

// Search GET /api/users/search?q=&size=
func (h *UserHandler) Search(c *gin.Context) {
	q := c.Query("q")
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.Svc.SearchUsers(c.Request.Context(), q, size)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"hits": hits}, "search results", nil)
}
