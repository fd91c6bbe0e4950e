package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/teamnext/accounts-api/internal/interface/http"
	"github.com/teamnext/accounts-api/internal/interface/middleware"
	"github.com/teamnext/accounts-api/pkg/helpers"
)

// UserModule wires the account endpoints and the bearer middleware.
// Public: GET /api/users, GET /api/users/:id
// Protected: GET /api/me, POST /api/logout, GET /api/users/search,
// PUT /api/users/:id, DELETE /api/users/:id
type UserModule struct {
	Handler *handlers.UserHandler
	Tokens  *helpers.TokenManager
}

func NewUserModule(h *handlers.UserHandler, tokens *helpers.TokenManager) *UserModule {
	return &UserModule{Handler: h, Tokens: tokens}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	rg.GET("/users", m.Handler.List)
	rg.GET("/users/:id", m.Handler.Get)

	auth := rg.Group("/")
	auth.Use(middleware.BearerAuth(m.Tokens))
	{
		auth.GET("/me", m.Handler.Me)
		auth.POST("/logout", m.Handler.Logout)
		auth.GET("/users/search", m.Handler.Search)
		auth.PUT("/users/:id", m.Handler.Update)
		auth.DELETE("/users/:id", m.Handler.Delete)
	}
}
