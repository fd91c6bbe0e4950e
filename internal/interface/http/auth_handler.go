package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/teamnext/accounts-api/internal/application"
	"github.com/teamnext/accounts-api/pkg/helpers"
	"github.com/teamnext/accounts-api/pkg/response"
	"github.com/teamnext/accounts-api/pkg/validation"
)

// AuthHandler exposes the public credential flows: registration, login,
// and the synchronous password reset.
type AuthHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
}

func NewAuthHandler(svc *application.Service, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger}
}

// statusFor maps service failure kinds to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, application.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, application.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, application.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage strips the kind prefix from wrapped errors and hides the
// detail of internal failures.
func clientMessage(err error) string {
	if errors.Is(err, application.ErrInternal) {
		return "internal server error"
	}
	msg := err.Error()
	for _, kind := range []error{
		application.ErrConflict,
		application.ErrNotFound,
		application.ErrInvalidInput,
		application.ErrUnauthorized,
	} {
		if p := kind.Error() + ": "; strings.HasPrefix(msg, p) {
			return strings.TrimPrefix(msg, p)
		}
	}
	return msg
}

// fail writes the error response and logs it with the request-scoped
// fields set by the middleware chain.
func fail(c *gin.Context, logger *logrus.Logger, err error) {
	status := statusFor(err)
	if logger != nil {
		fields := logrus.Fields{
			"status":     status,
			"path":       c.FullPath(),
			"request_id": c.GetString("request_id"),
			"real_ip":    c.GetString("real_ip"),
		}
		if status >= http.StatusInternalServerError {
			helpers.LogError(logger, "request failed", err, fields)
		} else {
			helpers.LogInfo(logger, "request rejected", fields)
		}
	}
	response.Error[any](c, status, clientMessage(err), nil)
}

type registerRequest struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,pwd"`
	Name        string `json:"name" binding:"required"`
	Age         int    `json:"age" binding:"required"`
	Gender      string `json:"gender" binding:"required"`
	PhoneNumber string `json:"phone_number" binding:"required,phone10"`
}

type loginRequest struct {
	UsernameOrEmail string `json:"username_or_email" binding:"required"`
	Password        string `json:"password" binding:"required"`
}

type forgetPasswordRequest struct {
	UsernameOrEmail string `json:"username_or_email" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// Register POST /api/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	u, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		Name:        req.Name,
		Age:         req.Age,
		Gender:      req.Gender,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, u, "user created successfully", nil)
}

// Login POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	u, pair, err := h.Svc.Login(c.Request.Context(), req.UsernameOrEmail, req.Password)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"user":          u,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    "bearer",
	}, "login successful", gin.H{
		"access_expires_at":  pair.AccessTokenExpiry,
		"refresh_expires_at": pair.RefreshTokenExpiry,
	})
}

// ForgetPassword PUT /api/forget-password
func (h *AuthHandler) ForgetPassword(c *gin.Context) {
	var req forgetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	if err := h.Svc.ForgetPassword(c.Request.Context(), req.UsernameOrEmail, req.NewPassword, req.ConfirmPassword); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"reset": true}, "password changed successfully", nil)
}
