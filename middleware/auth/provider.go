package auth

import (
	"github.com/expensio/expensio/services/jwt"
	"github.com/expensio/expensio/services/logging"
	"github.com/expensio/expensio/services/user"
	"go.uber.org/fx"
)

func ProvideAuthMiddleware(tokens *jwt.Service, users *user.Service, logger *logging.Service) *Middleware {
	return New(tokens, users, logger)
}

var Module = fx.Options(
	fx.Provide(ProvideAuthMiddleware),
)
