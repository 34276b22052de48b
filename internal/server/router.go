package server

import (
	"context"
	"net/http"

	"mise/internal/handlers"
	applog "mise/internal/log"
)

func newRouter() http.Handler {
	mux := http.NewServeMux()
	applog.Debug(context.Background(), "registering http routes")
	mux.HandleFunc("/healthz", handlers.Health)
	mux.HandleFunc("/login", handlers.Login)
	mux.HandleFunc("/signup", handlers.Signup)
	mux.HandleFunc("/logout", handlers.Logout)

	mux.Handle("/app/api/inventory", handlers.RequireAuthentication(http.HandlerFunc(handlers.InventoryResource)))
	mux.Handle("/app/api/inventory/", handlers.RequireAuthentication(http.HandlerFunc(handlers.InventoryResource)))
	mux.Handle("/app/api/recipes", handlers.RequireAuthentication(http.HandlerFunc(handlers.RecipeResource)))
	mux.Handle("/app/api/recipes/", handlers.RequireAuthentication(http.HandlerFunc(handlers.RecipeResource)))
	mux.Handle("/app/api/menu-items", handlers.RequireAuthentication(http.HandlerFunc(handlers.MenuItemResource)))
	applog.Debug(context.Background(), "routes registered", "protected", true)
	return mux
}
