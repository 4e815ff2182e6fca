//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"castive/config"
	"castive/internal/announcement"
	"castive/internal/api"
	"castive/internal/auth"
	"castive/internal/cache"
	"castive/internal/database"
	"castive/internal/email"
	"castive/internal/list"
	"castive/internal/sessions"
	"castive/internal/user"
)

var appSet = wire.NewSet(
	sessions.Set,
	email.Set,
	user.Set,
	auth.Set,
	list.Set,
	announcement.Set,
	api.NewServer,
	provideGormDB,
	provideCaller,
	wire.Bind(new(user.VerificationMailer), new(*auth.Flows)),
	wire.Bind(new(user.SessionRevoker), new(*sessions.Manager)),
)

func initializeServer(cfg *config.Config, db *database.Database, store cache.Store, logger *zap.Logger) *api.Server {
	wire.Build(appSet)
	return &api.Server{}
}

func provideGormDB(db *database.Database) *gorm.DB {
	return db.DB
}

func provideCaller() user.CallerFromContext {
	return auth.UserFromContext
}
