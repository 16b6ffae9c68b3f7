// Command recovery-stub serves the forgot-password endpoints from memory so
// the recover command and UI work can be exercised without the real backend.
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrEthical07/goRecovery/internal/console"
	"github.com/MrEthical07/goRecovery/internal/stubapi"
	"github.com/MrEthical07/goRecovery/jwt"
	"github.com/MrEthical07/goRecovery/password"
)

const envPrefix = "RECOVERY_STUB_"

type accountConfig struct {
	Name            string `mapstructure:"name"`
	Email           string `mapstructure:"email"`
	DefaultPassword string `mapstructure:"default_password"`
}

type stubConfig struct {
	Addr           string          `mapstructure:"addr"`
	AllowedOrigins []string        `mapstructure:"allowed_origins"`
	TokenTTL       time.Duration   `mapstructure:"token_ttl"`
	TokenSecret    string          `mapstructure:"token_secret"`
	MaxFailures    int             `mapstructure:"max_failures"`
	FailureWindow  time.Duration   `mapstructure:"failure_window"`
	Delay          time.Duration   `mapstructure:"delay"`
	Accounts       []accountConfig `mapstructure:"accounts"`
	Redis          struct {
		Addr   string `mapstructure:"addr"`
		Prefix string `mapstructure:"prefix"`
	} `mapstructure:"redis"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

func defaultStubConfig() stubConfig {
	cfg := stubConfig{
		Addr:          "127.0.0.1:8080",
		TokenTTL:      10 * time.Minute,
		MaxFailures:   5,
		FailureWindow: 15 * time.Minute,
		Accounts: []accountConfig{
			{Name: "Jean Dupont", Email: "jean@example.com", DefaultPassword: "Default123"},
		},
	}
	cfg.Log.Level = "info"
	return cfg
}

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file; RECOVERY_STUB_* environment variables override it")
		addr       = flag.String("addr", "", "listen address, overrides config")
	)
	flag.Parse()

	cfg := defaultStubConfig()
	if err := console.Load(*configPath, envPrefix, &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	logger, _ := console.NewLogger(cfg.Log.Level, os.Stderr)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Fatal("stub failed", zap.Error(err))
	}
}

func serve(ctx context.Context, cfg stubConfig, logger *zap.Logger) error {
	ledger, closeLedger, err := newLedger(cfg, logger)
	if err != nil {
		return err
	}
	defer closeLedger()

	secret := []byte(cfg.TokenSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return err
		}
	}
	tokens, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.TokenTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    secret,
		Issuer:        "recovery-stub",
	})
	if err != nil {
		return err
	}

	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return err
	}

	srv, err := stubapi.NewServer(stubapi.Config{
		Tokens:         tokens,
		Hasher:         hasher,
		Ledger:         ledger,
		Logger:         logger,
		MaxFailures:    cfg.MaxFailures,
		AllowedOrigins: cfg.AllowedOrigins,
		Delay:          cfg.Delay,
	})
	if err != nil {
		return err
	}
	for _, a := range cfg.Accounts {
		id, err := srv.AddAccount(a.Name, a.Email, a.DefaultPassword)
		if err != nil {
			return fmt.Errorf("account %s: %w", a.Email, err)
		}
		logger.Info("account loaded", zap.String("id", id), zap.String("email", a.Email), zap.Bool("has_default", a.DefaultPassword != ""))
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func newLedger(cfg stubConfig, logger *zap.Logger) (stubapi.Ledger, func(), error) {
	if cfg.Redis.Addr == "" {
		l, err := stubapi.NewMemoryLedger(cfg.FailureWindow, time.Minute)
		if err != nil {
			return nil, nil, err
		}
		return l, func() { _ = l.Close() }, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{cfg.Redis.Addr}})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
	}
	logger.Info("using redis ledger", zap.String("addr", cfg.Redis.Addr))
	return stubapi.NewRedisLedger(client, cfg.Redis.Prefix, cfg.FailureWindow), func() { _ = client.Close() }, nil
}
