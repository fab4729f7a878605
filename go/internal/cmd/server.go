package main

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/thaasbai/tables/go/internal/config"
	"github.com/thaasbai/tables/go/internal/gateway"
)

func setupServer(cfg config.Config, services *Services) *http.Server {
	mux := http.NewServeMux()

	services.WebSocket.RegisterRoutes(mux)
	services.Sponsors.RegisterRoutes(mux)

	handler := gateway.CORSMiddleware(cfg.CORSOrigins, mux)

	// WriteTimeout stays unset; upgraded sockets manage their own deadlines
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
