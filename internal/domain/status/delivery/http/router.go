package http

import (
	"github.com/fasthttp/router"
	"github.com/rs/zerolog"
)

// Router registers status HTTP routes
type Router struct {
	handler *Handler
	logger  zerolog.Logger
}

// NewRouter creates a new status router
func NewRouter(handler *Handler, logger zerolog.Logger) *Router {
	return &Router{
		handler: handler,
		logger:  logger,
	}
}

// RegisterRoutes registers status routes on the router
func (r *Router) RegisterRoutes(rt *router.Router) {
	rt.GET("/health", r.handler.Health)
	rt.GET("/status", r.handler.Status)
	rt.GET("/sessions", r.handler.Sessions)
}
