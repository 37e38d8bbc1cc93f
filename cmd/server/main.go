// Command server wires every package in internal/ into one HTTP+WebSocket
// listener (spec §2's full component list), following the teacher's
// main.go shape: build the auth backend from env, build the room/gateway
// layer on top, mount REST handlers and the WS upgrade onto one ServeMux,
// wrap it in a permissive CORS middleware, and serve.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"bigtwo-lite/internal/auth"
	"bigtwo-lite/internal/bus"
	"bigtwo-lite/internal/config"
	"bigtwo-lite/internal/gateway"
	"bigtwo-lite/internal/identity"
	"bigtwo-lite/internal/restapi"
	"bigtwo-lite/internal/room"
)

func main() {
	cfg := config.FromEnv()

	authMode := cfg.AuthMode
	if authMode == "" {
		authMode = auth.ModeFromDatabaseURL(cfg.DatabaseURL)
	}
	store, err := auth.NewStore(authMode, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[Server] failed to init session store (mode=%s): %v", authMode, err)
	}
	defer store.Close()
	validator := auth.NewValidator(store)

	names := identity.NewNameSource(256)
	registry := identity.NewRegistry()

	b := bus.New(cfg.BusCapacity)
	rooms := room.New(b, names)
	defer rooms.Stop()

	gw := gateway.New(rooms, validator, registry)
	sessionHTTP := auth.NewHTTPHandler(store, names, registry, cfg.SessionTTL())
	roomHTTP := restapi.New(rooms, validator, registry)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/", gw.HandleUpgrade)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	sessionHTTP.RegisterRoutes(mux)
	roomHTTP.RegisterRoutes(mux)

	addr := ":" + cfg.Port
	srv := &http.Server{Addr: addr, Handler: withCORS(mux)}

	log.Printf("[Server] auth mode: %s", authMode)
	log.Printf("[Server] bus capacity: %d", cfg.BusCapacity)
	log.Printf("[Server] session ttl: %s", humanize.RelTime(time.Now(), time.Now().Add(cfg.SessionTTL()), "", ""))
	log.Printf("[Server] starting on %s", addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[Server] failed to start: %v", err)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	<-sigs

	log.Printf("[Server] shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[Server] graceful shutdown failed: %v", err)
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
