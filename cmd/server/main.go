package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"account_backend/internal/app/config"
	"account_backend/internal/app/di"
	"account_backend/internal/app/router"
	"account_backend/internal/feature/account/transport/handler"
	"account_backend/internal/feature/account/usecase"
	jwtmw "account_backend/internal/platform/jwt"
	"account_backend/internal/platform/password"
	"account_backend/internal/shared/ratelimiter"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store
	store, err := di.NewStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to set up user store: %v", err)
	}
	defer store.Close()

	// 認証まわり
	hasher := password.NewArgon2idHasher(password.DefaultConfig())
	codec := jwtmw.NewCodec(jwtmw.Config{Secret: cfg.Token.Secret, TTL: cfg.Token.TTL})

	// Usecase
	accountUC := usecase.NewAccountUsecase(store.Users, hasher, codec, password.NewSalt)

	// Handler
	accountH := handler.NewAccountHandler(accountUC, handler.CookieConfig{
		Secure: cfg.HTTP.CookieSecure,
		MaxAge: codec.TTL(),
	})

	// ログイン試行の制限
	var loginLimiter *ratelimiter.RateLimiter
	if cfg.HTTP.LoginRateLimit > 0 {
		loginLimiter = ratelimiter.NewRateLimiter(cfg.HTTP.LoginRateLimit, cfg.HTTP.LoginRateWindow)
	}

	// ルータ生成
	r := router.NewRouter(accountH, codec, router.Options{
		StaticDir:    cfg.HTTP.StaticDir,
		Pinger:       store.Pinger,
		LoginLimiter: loginLimiter,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.HTTP.Addr, "store", cfg.Store.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}
