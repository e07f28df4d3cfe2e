package handlers

import (
	authmw "github.com/expensio/expensio/middleware/auth"
	"github.com/expensio/expensio/server"
)

// RegisterRoutes wires the auth surface onto the server.
func RegisterRoutes(srv *server.Server, authHandler *AuthHandler, protectedHandler *ProtectedHandler, mw *authmw.Middleware) {
	srv.Get("/health", Health)

	authGroup := srv.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/refresh", authHandler.Refresh)
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.POST("/logout-all", authHandler.LogoutAll, mw.RequireAuth())

	protectedGroup := srv.Group("/protected")
	protectedGroup.GET("/profile", protectedHandler.Profile, mw.RequireAuth())
	protectedGroup.GET("/optional", protectedHandler.Optional, mw.OptionalAuth())
}
