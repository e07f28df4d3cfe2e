package auth

import (
	"github.com/expensio/expensio/config"
	"github.com/expensio/expensio/services/jwt"
	"github.com/expensio/expensio/services/logging"
	"github.com/expensio/expensio/services/refreshtoken"
	"github.com/expensio/expensio/services/user"
	"go.uber.org/fx"
)

func ProvideAuthService(cfg *config.Config, users *user.Service, tokens *jwt.Service, refreshTokens *refreshtoken.Service, logger *logging.Service) *Service {
	return NewService(cfg, users, tokens, refreshTokens, logger)
}

var Module = fx.Options(
	fx.Provide(ProvideAuthService),
)
