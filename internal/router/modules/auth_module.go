package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/teamnext/accounts-api/internal/interface/http"
)

// AuthModule wires the public credential flows.
// Public: POST /api/register, POST /api/login, PUT /api/forget-password
type AuthModule struct {
	Handler *handlers.AuthHandler
}

func NewAuthModule(h *handlers.AuthHandler) *AuthModule {
	return &AuthModule{Handler: h}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rg.POST("/register", m.Handler.Register)
	rg.POST("/login", m.Handler.Login)
	rg.PUT("/forget-password", m.Handler.ForgetPassword)
}
