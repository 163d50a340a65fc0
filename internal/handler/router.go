/*
Package handler provides the HTTP handlers and routing setup for the relay.

This file defines the main Router: CORS, request ids, request logging and
panic recovery wrap every route; the WebSocket endpoint additionally sits
behind a per-IP upgrade limiter.
*/
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"roomrelay/internal/pkg/limiter"
	"roomrelay/internal/pkg/logx"
	"roomrelay/internal/pkg/metrics"
	"roomrelay/internal/pkg/resp"
)

const serviceName = "roomrelay"

// rateLimit converts a configured events-per-second value.
func rateLimit(perSecond float64) rate.Limit {
	return rate.Limit(perSecond)
}

// Router builds the relay's http.Handler. ctx bounds background work started
// by the router, such as limiter sweeping.
func Router(ctx context.Context, deps *AppDeps) http.Handler {
	upgradeLimiter := limiter.NewIPRateLimiter(ctx, rateLimit(deps.Config.UpgradeRate), deps.Config.UpgradeBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := deps.Config.AllowedOrigins
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	}

	c := cors.New(cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]string{
			"status":  "ok",
			"service": serviceName,
		})
	})

	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/rooms", func(api chi.Router) {
		api.Get("/", HandleListRooms(deps))
		api.Get("/{roomId}", HandleGetRoom(deps))
	})

	r.With(upgradeLimiter.Middleware).Get("/ws", HandleWebSocket(wsUpgrader, deps))

	r.Handle("/*", StaticFiles(deps.Config.StaticDir))

	return r
}
