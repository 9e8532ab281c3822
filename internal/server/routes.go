package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/grovehq/grove/internal/api/v1"
	"github.com/grovehq/grove/internal/api/ws"
	"github.com/grovehq/grove/internal/auth"
	"github.com/grovehq/grove/internal/store/postgres"
	redisstore "github.com/grovehq/grove/internal/store/redis"
	"github.com/grovehq/grove/internal/tasktree"
)

func registerAuthRoutes(api huma.API, authSvc *auth.Service) {
	v1.RegisterAuthRoutes(api, authSvc)
}

func registerAPIRoutes(api huma.API, store *postgres.Store, treeSvc *tasktree.Service, pubsub *redisstore.PubSub) {
	v1.RegisterNodeRoutes(api, treeSvc)
	v1.RegisterCardRoutes(api, store)
	v1.RegisterBattleRoutes(api, store, treeSvc, pubsub)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/tree", hub.ServeTree)
	r.Get("/battles", hub.ServeBattles)
}
