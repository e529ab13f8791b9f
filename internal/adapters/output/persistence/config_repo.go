package persistence

import (
	"context"
	"fmt"
	"os"
	"sync"
	"telldus-bridge/internal/domain/model"
	"telldus-bridge/internal/ports"
	"time"

	"gopkg.in/yaml.v3"
)

// YAMLConfigRepository loads the bridge configuration from a YAML file.
// Unset fields keep their defaults and TELLDUS_* environment variables win
// over the file.
type YAMLConfigRepository struct {
	filepath string
	mu       sync.RWMutex
}

var _ ports.ConfigRepository = (*YAMLConfigRepository)(nil)

func NewYAMLConfigRepository(filepath string) *YAMLConfigRepository {
	return &YAMLConfigRepository{filepath: filepath}
}

func (r *YAMLConfigRepository) Get(ctx context.Context) (*model.Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg := model.DefaultConfig()

	data, err := os.ReadFile(r.filepath)
	switch {
	case os.IsNotExist(err):
		// Defaults plus environment only.
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (r *YAMLConfigRepository) Save(ctx context.Context, config *model.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(r.filepath, data, 0o600)
}

func applyEnvOverrides(cfg *model.Config) error {
	// Transport
	if v := os.Getenv("TELLDUS_MODE"); v != "" {
		cfg.Transport.Mode = model.TransportMode(v)
	}
	if v := os.Getenv("TELLDUS_HOST"); v != "" {
		cfg.Transport.Local.Host = v
	}
	if v := os.Getenv("TELLDUS_ACCESS_TOKEN"); v != "" {
		cfg.Transport.Local.AccessToken = v
	}
	if v := os.Getenv("TELLDUS_PUBLIC_KEY"); v != "" {
		cfg.Transport.Live.PublicKey = v
	}
	if v := os.Getenv("TELLDUS_PRIVATE_KEY"); v != "" {
		cfg.Transport.Live.PrivateKey = v
	}
	if v := os.Getenv("TELLDUS_TOKEN"); v != "" {
		cfg.Transport.Live.Token = v
	}
	if v := os.Getenv("TELLDUS_TOKEN_SECRET"); v != "" {
		cfg.Transport.Live.TokenSecret = v
	}

	// Cache
	if v := os.Getenv("TELLDUS_CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}

	// Service
	if v := os.Getenv("TELLDUS_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("TELLDUS_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TELLDUS_POLL_INTERVAL: %w", err)
		}
		cfg.Poll.Interval = d
	}
	if v := os.Getenv("TELLDUS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Fan-out
	if v := os.Getenv("TELLDUS_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Password = v
	}
	if v := os.Getenv("TELLDUS_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	return nil
}
