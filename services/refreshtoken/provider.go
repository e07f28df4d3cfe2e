package refreshtoken

import (
	"context"

	"github.com/expensio/expensio/config"
	"github.com/expensio/expensio/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideRefreshTokenService(lc fx.Lifecycle, db *gorm.DB, config *config.Config, logger *logging.Service) *Service {
	service := NewService(db, config, logger)

	if config.RefreshToken.CleanupInterval > 0 {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				service.StartCleanupWorker()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				service.StopCleanupWorker()
				return nil
			},
		})
	}

	return service
}

var Module = fx.Options(
	fx.Provide(ProvideRefreshTokenService),
)
