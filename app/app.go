package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/expensio/expensio/config"
	"github.com/expensio/expensio/database"
	"github.com/expensio/expensio/handlers"
	authmw "github.com/expensio/expensio/middleware/auth"
	"github.com/expensio/expensio/server"
	"github.com/expensio/expensio/services/auth"
	"github.com/expensio/expensio/services/jwt"
	"github.com/expensio/expensio/services/logging"
	"github.com/expensio/expensio/services/refreshtoken"
	"github.com/expensio/expensio/services/user"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// App is the process composition root: one explicitly constructed instance
// of every component, wired through fx. No package-level singletons.
type App struct {
	fx     *fx.App
	config *config.Config
	logger *logging.Service
	server *server.Server
	db     *gorm.DB
}

// New assembles the application graph. Passing a nil config loads one from
// the environment.
func New(cfg *config.Config) *App {
	app := &App{}

	app.fx = fx.New(
		fx.NopLogger,
		config.NewProvider(cfg),
		logging.Module,
		fx.Supply(database.WithModels(&user.User{}, &refreshtoken.RefreshToken{})),
		database.Module,
		user.Module,
		jwt.Module,
		refreshtoken.Module,
		auth.Module,
		authmw.Module,
		fx.Provide(handlers.NewAuthHandler),
		fx.Provide(handlers.NewProtectedHandler),
		server.NewProvider(),
		fx.Invoke(handlers.RegisterRoutes),
		fx.Populate(&app.config, &app.logger, &app.server, &app.db),
	)

	return app
}

func (a *App) Start() error {
	return a.fx.Start(context.Background())
}

func (a *App) Run() {
	if err := a.Start(); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	if a.logger != nil {
		a.logger.Info("Received shutdown signal, stopping gracefully...")
	} else {
		log.Printf("Received signal %v, shutting down gracefully...", sig)
	}

	a.Stop()
}

func (a *App) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.fx.Stop(ctx); err != nil {
		if a.logger != nil {
			a.logger.Error("Failed to stop application gracefully")
		} else {
			log.Printf("Failed to stop application gracefully: %v", err)
		}
	}
}

func (a *App) Server() *echo.Echo {
	if a.server == nil {
		return nil
	}
	return a.server.Echo()
}

func (a *App) DB() *gorm.DB {
	return a.db
}

func (a *App) Logger() *logging.Service {
	return a.logger
}

func (a *App) Config() *config.Config {
	return a.config
}
