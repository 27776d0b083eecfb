package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. OBSERVATORIO_SERVER_ADDR.
const EnvPrefix = "OBSERVATORIO"

// Config is the full runtime configuration.
type Config struct {
	Server   Server   `mapstructure:"server"`
	Fixtures Fixtures `mapstructure:"fixtures"`
	Fetch    Fetch    `mapstructure:"fetch"`
	Refresh  Refresh  `mapstructure:"refresh"`
	Map      Map      `mapstructure:"map"`
	Envelope Envelope `mapstructure:"envelope"`
	Log      Log      `mapstructure:"log"`
	Offline  Offline  `mapstructure:"offline"`
}

// Server captures the dashboard HTTP server settings.
type Server struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Fixtures selects where the collections come from. BaseURL wins over Dir;
// EnvelopeURL, when set, loads all five collections from one document.
type Fixtures struct {
	Dir         string `mapstructure:"dir"`
	BaseURL     string `mapstructure:"base_url"`
	EnvelopeURL string `mapstructure:"envelope_url"`
	Watch       bool   `mapstructure:"watch"`
}

// Fetch configures the outbound HTTP client.
type Fetch struct {
	Retries int           `mapstructure:"retries"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Refresh configures the periodic cycle and the error banner.
type Refresh struct {
	Interval  time.Duration `mapstructure:"interval"`
	BannerTTL time.Duration `mapstructure:"banner_ttl"`
}

// Map configures the map widget.
type Map struct {
	Center      []float64 `mapstructure:"center"`
	Zoom        int       `mapstructure:"zoom"`
	TileURL     string    `mapstructure:"tile_url"`
	Attribution string    `mapstructure:"attribution"`
}

// Envelope configures the aggregation endpoint.
type Envelope struct {
	Version string `mapstructure:"version"`
}

// Log configures zerolog.
type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Offline configures the cache-first proxy.
type Offline struct {
	Addr      string   `mapstructure:"addr"`
	Origin    string   `mapstructure:"origin"`
	CacheName string   `mapstructure:"cache_name"`
	RedisURL  string   `mapstructure:"redis_url"`
	Precache  []string `mapstructure:"precache"`
}

// DefaultPrecache is the fixed list of URLs stored at install time.
var DefaultPrecache = []string{
	"/",
	"/estilo.css",
	"/dashboard.js",
	"/manifest.json",
	"/datos/boe.json",
	"/datos/alertas.json",
	"/datos/subvenciones.json",
	"/datos/gasto.json",
	"/datos/promesas.json",
	"/datos/municipios.geojson",
	"https://unpkg.com/leaflet@1.9.4/dist/leaflet.css",
	"https://unpkg.com/leaflet@1.9.4/dist/leaflet.js",
	"https://cdn.jsdelivr.net/npm/chart.js",
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("fixtures.dir", "datos")
	v.SetDefault("fixtures.base_url", "")
	v.SetDefault("fixtures.envelope_url", "")
	v.SetDefault("fixtures.watch", false)
	v.SetDefault("fetch.retries", 0)
	v.SetDefault("fetch.timeout", time.Duration(0))
	v.SetDefault("refresh.interval", 5*time.Minute)
	v.SetDefault("refresh.banner_ttl", 5*time.Second)
	v.SetDefault("map.center", []float64{40.4168, -3.7038})
	v.SetDefault("map.zoom", 6)
	v.SetDefault("map.tile_url", "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png")
	v.SetDefault("map.attribution", "© OpenStreetMap contributors")
	v.SetDefault("envelope.version", "1.0.0")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("offline.addr", ":8081")
	v.SetDefault("offline.origin", "http://localhost:8080")
	v.SetDefault("offline.cache_name", "")
	v.SetDefault("offline.redis_url", "")
	v.SetDefault("offline.precache", DefaultPrecache)
}

// New returns a viper instance with defaults and environment overrides.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file at path into v and decodes the result.
// A missing file at the default location is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("observatorio")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the dashboard cannot run with.
func (c *Config) Validate() error {
	if len(c.Map.Center) != 2 {
		return fmt.Errorf("map.center must hold latitude and longitude, got %d values", len(c.Map.Center))
	}
	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh.interval must be positive, got %s", c.Refresh.Interval)
	}
	if c.Fixtures.Dir == "" && c.Fixtures.BaseURL == "" {
		return errors.New("one of fixtures.dir or fixtures.base_url is required")
	}
	return nil
}
