package apiapp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/leisureprog/dead-ddos/internal/transport/rpc"
)

type Dependencies struct {
	RPC    *rpc.Server
	Logger *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Post("/rpc", deps.RPC.ServeHTTP)
}
