package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	authConfig "github.com/iurnickita/campaignadmin/internal/auth/config"
	handlerConfig "github.com/iurnickita/campaignadmin/internal/handler/config"
	loggerConfig "github.com/iurnickita/campaignadmin/internal/logger/config"
	serviceConfig "github.com/iurnickita/campaignadmin/internal/service/config"
	storeConfig "github.com/iurnickita/campaignadmin/internal/store/config"
)

type Config struct {
	Handler handlerConfig.Config
	Service serviceConfig.Config
	Store   storeConfig.Config
	Logger  loggerConfig.Config
	Auth    authConfig.Config
}

// GetConfig собирает конфигурацию: .env, флаги, затем переменные окружения.
// Переменные окружения важнее флагов.
func GetConfig() (Config, error) {
	// .env необязателен
	_ = godotenv.Load()
	return parse(os.Args[0], os.Args[1:], os.Getenv)
}

func parse(name string, args []string, getenv func(string) string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&cfg.Handler.ServerAddr, "a", "localhost:8080", "server address")
	fs.Int64Var(&cfg.Handler.MaxUploadBytes, "max-upload", 10<<20, "max publish upload size in bytes")
	fs.DurationVar(&cfg.Handler.ShutdownTimeout, "shutdown-timeout", 10*time.Second, "graceful shutdown timeout")
	fs.StringVar(&cfg.Store.DBDsn, "d", "", "postgres DSN; in-memory store when empty")
	fs.StringVar(&cfg.Logger.LogLevel, "l", "info", "log level")
	fs.StringVar(&cfg.Auth.Secret, "secret", "campaignadmin-dev-secret", "session token signing secret")
	fs.DurationVar(&cfg.Auth.TokenTTL, "token-ttl", 24*time.Hour, "session token lifetime")
	fs.StringVar(&cfg.Service.MetricsNamespace, "metrics-namespace", "campaignadmin", "prometheus namespace")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if v := getenv("RUN_ADDRESS"); v != "" {
		cfg.Handler.ServerAddr = v
	}
	if v := getenv("DATABASE_DSN"); v != "" {
		cfg.Store.DBDsn = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.Logger.LogLevel = v
	}
	if v := getenv("AUTH_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := getenv("METRICS_NAMESPACE"); v != "" {
		cfg.Service.MetricsNamespace = v
	}
	if v := getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
		}
		cfg.Handler.MaxUploadBytes = n
	}
	if v := getenv("TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("TOKEN_TTL: %w", err)
		}
		cfg.Auth.TokenTTL = d
	}
	if v := getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.Handler.ShutdownTimeout = d
	}

	if cfg.Handler.MaxUploadBytes <= 0 {
		return Config{}, fmt.Errorf("max upload size must be positive, got %d", cfg.Handler.MaxUploadBytes)
	}
	return cfg, nil
}
