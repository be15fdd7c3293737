package mainconfig

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-portal/internal/clinicapi"
	appconfig "github.com/wolfman30/clinic-portal/internal/config"
	"github.com/wolfman30/clinic-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-portal/internal/session"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

// NewBackendClient centralizes the clinic backend client so both binaries
// talk to the same base URL with the same timeout.
func NewBackendClient(cfg *appconfig.Config, logger *logging.Logger, m *metrics.BackendMetrics) *clinicapi.Client {
	return clinicapi.New(clinicapi.Config{
		BaseURL: cfg.BackendBaseURL,
		Timeout: cfg.BackendTimeout,
		Logger:  logger,
		Metrics: m,
	})
}

// NewSessionStore opens the configured session store. The returned close
// func releases any connection it holds.
func NewSessionStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (session.Store, func() error, error) {
	switch cfg.SessionStore {
	case "redis":
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		logger.Debug("using redis session store", "addr", cfg.RedisAddr)
		return session.NewRedisStore(client, cfg.SessionTTL), client.Close, nil
	case "file":
		path := cfg.SessionFile
		if path == "" {
			dir, err := os.UserConfigDir()
			if err != nil {
				return nil, nil, fmt.Errorf("locate config dir: %w", err)
			}
			path = filepath.Join(dir, "clinicctl", "session.json")
		}
		logger.Debug("using file session store", "path", path)
		return session.NewFileStore(path), noopClose, nil
	case "", "memory":
		return session.NewMemoryStore(), noopClose, nil
	}
	return nil, nil, fmt.Errorf("unknown SESSION_STORE %q", cfg.SessionStore)
}

func noopClose() error { return nil }
