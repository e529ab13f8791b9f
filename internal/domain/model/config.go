package model

import (
	"fmt"
	"strings"
	"time"
)

type TransportMode string

const (
	TransportLocal TransportMode = "local"
	TransportLive  TransportMode = "live"
)

type LocalTransportConfig struct {
	Host                 string        `yaml:"host"`
	AccessToken          string        `yaml:"access_token"`
	TokenRefreshInterval time.Duration `yaml:"token_refresh_interval"`
}

// LiveTransportConfig holds the OAuth1 credentials for the cloud API.
type LiveTransportConfig struct {
	BaseURL     string `yaml:"base_url"`
	PublicKey   string `yaml:"public_key"`
	PrivateKey  string `yaml:"private_key"`
	Token       string `yaml:"token"`
	TokenSecret string `yaml:"token_secret"`
}

type TransportConfig struct {
	Mode    TransportMode        `yaml:"mode"`
	Timeout time.Duration        `yaml:"timeout"`
	Local   LocalTransportConfig `yaml:"local"`
	Live    LiveTransportConfig  `yaml:"live"`
}

type CacheConfig struct {
	Dir       string        `yaml:"dir"`
	DeviceTTL time.Duration `yaml:"device_ttl"`
	SensorTTL time.Duration `yaml:"sensor_ttl"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// PollConfig drives the background refresh loop. A zero interval disables it.
type PollConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	QoS         int    `yaml:"qos"`
	TopicPrefix string `yaml:"topic_prefix"`
}

type InfluxDBConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org"`
	Bucket  string `yaml:"bucket"`
}

type Config struct {
	Transport TransportConfig `yaml:"transport"`
	Cache     CacheConfig     `yaml:"cache"`
	HTTP      HTTPConfig      `yaml:"http"`
	Poll      PollConfig      `yaml:"poll"`
	Logging   LoggingConfig   `yaml:"logging"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
}

// DefaultConfig returns the settings used when the config file leaves a
// field unset.
func DefaultConfig() *Config {
	return &Config{
		Transport: TransportConfig{
			Mode:    TransportLocal,
			Timeout: 10 * time.Second,
			Local: LocalTransportConfig{
				TokenRefreshInterval: time.Hour,
			},
			Live: LiveTransportConfig{
				BaseURL: "https://pa-api.telldus.com/json",
			},
		},
		Cache: CacheConfig{
			Dir:       "./Cache",
			DeviceTTL: 5 * time.Second,
			SensorTTL: 60 * time.Second,
		},
		HTTP: HTTPConfig{Addr: ":8080"},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		MQTT: MQTTConfig{
			Port:        1883,
			ClientID:    "telldus-bridge",
			QoS:         1,
			TopicPrefix: "telldus",
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []string

	switch c.Transport.Mode {
	case TransportLocal:
		if c.Transport.Local.Host == "" {
			errs = append(errs, "transport.local.host is required")
		}
		if c.Transport.Local.AccessToken == "" {
			errs = append(errs, "transport.local.access_token is required (set TELLDUS_ACCESS_TOKEN)")
		}
	case TransportLive:
		l := c.Transport.Live
		if l.PublicKey == "" || l.PrivateKey == "" || l.Token == "" || l.TokenSecret == "" {
			errs = append(errs, "transport.live requires public_key, private_key, token and token_secret")
		}
	default:
		errs = append(errs, fmt.Sprintf("transport.mode must be %q or %q", TransportLocal, TransportLive))
	}

	if c.Cache.Dir == "" {
		errs = append(errs, "cache.dir is required")
	}
	if c.Cache.DeviceTTL <= 0 || c.Cache.SensorTTL <= 0 {
		errs = append(errs, "cache ttls must be positive")
	}
	if c.Poll.Interval < 0 {
		errs = append(errs, "poll.interval must not be negative")
	}
	if c.MQTT.Enabled {
		if c.MQTT.Host == "" {
			errs = append(errs, "mqtt.host is required when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
	}
	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
