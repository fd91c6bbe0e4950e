package router

import (
	"github.com/teamnext/accounts-api/internal/application"
	"github.com/teamnext/accounts-api/internal/container"
	pginfra "github.com/teamnext/accounts-api/internal/infrastructure/postgres"
	handlers "github.com/teamnext/accounts-api/internal/interface/http"
	"github.com/teamnext/accounts-api/internal/router/modules"
)

// InitModules initializes all application modules and registers them with
// the router registry. Called once during startup after the container has
// been populated.
func InitModules(r *Registry) {
	repo := pginfra.NewUserRepository(container.GetPGPool())

	svc := application.NewService(
		repo,
		container.GetTokens(),
		container.GetRedis(),
		container.GetLogger(),
		container.GetES(),
		container.GetConfig().ESUsersIndex,
	)

	authHandler := handlers.NewAuthHandler(svc, container.GetLogger())
	userHandler := handlers.NewUserHandler(svc, container.GetLogger())

	r.Add(modules.NewAuthModule(authHandler))
	r.Add(modules.NewUserModule(userHandler, container.GetTokens()))
}
