package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"wishmaster.org/internal/auth"
	"wishmaster.org/internal/event"
	"wishmaster.org/internal/httpapi"
	"wishmaster.org/internal/obs"
	"wishmaster.org/internal/revoke"
	"wishmaster.org/internal/store/pg"
	"wishmaster.org/internal/token"
)

var version = "0.3.0"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("WISHMASTER_COMMIT"))

	secret := os.Getenv("WISHMASTER_TOKEN_SECRET")
	if len(secret) < 32 {
		log.Fatal("WISHMASTER_TOKEN_SECRET must be set (at least 32 bytes)")
	}
	dsn := os.Getenv("WISHMASTER_PG_DSN")
	if dsn == "" {
		log.Fatal("WISHMASTER_PG_DSN must be set")
	}

	store, err := pg.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	codec, err := token.NewCodec([]byte(secret), token.WithIssuer("wishmaster"))
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}
	tokens, err := token.NewManager(codec,
		token.WithAccessLifetime(envDuration("WISHMASTER_ACCESS_TTL", 15*time.Minute)),
		token.WithRefreshLifetime(envDuration("WISHMASTER_REFRESH_TTL", 14*24*time.Hour)),
	)
	if err != nil {
		log.Fatalf("token manager: %v", err)
	}

	// Refresh rotation state lives in Redis when available so every
	// replica sees a spent token; otherwise it is process-local.
	var revoked revoke.Store
	if addr := os.Getenv("WISHMASTER_REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		defer client.Close()
		revoked = revoke.NewRedis(client)
	} else {
		log.Println("WISHMASTER_REDIS_ADDR not set, using in-process revocation store")
		revoked = revoke.NewMemory()
	}

	sessions, err := auth.NewService(tokens, store, revoked)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	backend, err := auth.NewBackend(tokens, store)
	if err != nil {
		log.Fatalf("auth backend: %v", err)
	}
	authz, err := auth.NewAuthorizer(store)
	if err != nil {
		log.Fatalf("authorizer: %v", err)
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 10*time.Second)
	if err := store.EnsurePermissions(startupCtx, auth.BuiltinPermissions); err != nil {
		log.Fatalf("ensure permissions: %v", err)
	}
	cancelStartup()

	api := httpapi.New(httpapi.Deps{
		Backend:    backend,
		Sessions:   sessions,
		Authorizer: authz,
		Registry:   store,
		Catalog:    store,
		Wishes:     store,
		Events:     event.NewBus(),
		ReadyProbe: httpapi.ReadyProbe{DB: store.DB()},
		Version:    version,
	})

	addr := os.Getenv("WISHMASTER_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting wishmaster-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}

func envDuration(name string, def time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Fatalf("%s: invalid duration %q", name, raw)
	}
	return d
}
