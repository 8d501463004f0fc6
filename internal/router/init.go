package router

import (
	userapp "github.com/eagleapps/user-service/internal/application"
	"github.com/eagleapps/user-service/internal/container"
	repouser "github.com/eagleapps/user-service/internal/domain/repository"
	pginfra "github.com/eagleapps/user-service/internal/infrastructure/postgres"
	handlers "github.com/eagleapps/user-service/internal/interface/http"
	"github.com/eagleapps/user-service/internal/router/modules"
)

type UserModuleDeps struct {
	Repo    repouser.UserRepository
	Service *userapp.Service
	Handler *handlers.UserHandler
}

func buildUserDeps() UserModuleDeps {
	cfg := container.GetConfig()
	seq := pginfra.NewSequenceRepository(container.GetPGPool())
	repo := pginfra.NewUserRepository(container.GetPGPool(), seq, cfg.IDPrefix)

	service := userapp.NewService(
		repo,
		container.GetRedis(),
		container.GetRabbitPub(),
		container.GetLogger(),
		container.GetES(),
		cfg.ESUsersIndex,
		cfg.UserCacheTTL,
	)

	handler := handlers.NewUserHandler(service, container.GetLogger())

	return UserModuleDeps{Repo: repo, Service: service, Handler: handler}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	userDeps := buildUserDeps()
	r.Add(modules.NewUserModule(userDeps.Handler))
	if container.GetConfig().DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
