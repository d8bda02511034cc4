package config

import (
	"sync/atomic"
	"time"

	"github.com/vzahanych/weather-report/internal/weather"
)

var configValue atomic.Value

func GetConfig() *Config {
	cfg, _ := configValue.Load().(*Config)
	return cfg
}

func SetConfig(cfg *Config) {
	configValue.Store(cfg)
}

type Config struct {
	Version     string           `mapstructure:"version"`
	Environment string           `mapstructure:"environment"`
	Location    weather.Location `mapstructure:"location"`
	Providers   ProvidersConfig  `mapstructure:"providers"`
	HTTP        HTTPConfig       `mapstructure:"http"`
	Cache       CacheConfig      `mapstructure:"cache"`
	Breaker     BreakerConfig    `mapstructure:"breaker"`
	Aggregator  AggregatorConfig `mapstructure:"aggregator"`
	Server      ServerConfig     `mapstructure:"server"`
	Logging     LoggingConfig    `mapstructure:"logging"`
	Telemetry   TelemetryConfig  `mapstructure:"telemetry"`
}

type ProvidersConfig struct {
	OpenMeteo  OpenMeteoConfig  `mapstructure:"open_meteo"`
	Wttr       WttrConfig       `mapstructure:"wttr"`
	WeatherAPI WeatherAPIConfig `mapstructure:"weather_api"`
}

type OpenMeteoConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BaseURL  string `mapstructure:"base_url" validate:"required"`
	Timezone string `mapstructure:"timezone" validate:"required"`
}

type WttrConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url" validate:"required"`
}

type WeatherAPIConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url" validate:"required"`
	APIKey  string `mapstructure:"api_key"`
}

type HTTPConfig struct {
	Timeout            time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Attempts           int           `mapstructure:"attempts" validate:"min=1,max=10"`
	Backoff            string        `mapstructure:"backoff" validate:"oneof=fixed exponential"`
	BackoffInterval    time.Duration `mapstructure:"backoff_interval" validate:"gte=0"`
	BackoffMaxInterval time.Duration `mapstructure:"backoff_max_interval" validate:"gte=0"`
	UserAgent          string        `mapstructure:"user_agent"`
}

type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Backend   string        `mapstructure:"backend" validate:"oneof=file memory redis"`
	Dir       string        `mapstructure:"dir"`
	TTL       time.Duration `mapstructure:"ttl" validate:"gt=0"`
	Retention time.Duration `mapstructure:"retention" validate:"gt=0"`
	Redis     RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db" validate:"min=0,max=15"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type BreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxFailures uint32        `mapstructure:"max_failures" validate:"min=1"`
	OpenTimeout time.Duration `mapstructure:"open_timeout" validate:"gt=0"`
}

type AggregatorConfig struct {
	Delay      time.Duration `mapstructure:"delay" validate:"gte=0"`
	Deadline   time.Duration `mapstructure:"deadline" validate:"gte=0"`
	Concurrent bool          `mapstructure:"concurrent"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval" validate:"gte=0"`
	SnapshotMaxAge  time.Duration `mapstructure:"snapshot_max_age" validate:"gte=0"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=json console"`
	OutputPath string `mapstructure:"output_path"`
}

type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Endpoint       string `mapstructure:"endpoint"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
}

func NewDefaultConfig() *Config {
	return &Config{
		Version:     "1.0.0",
		Environment: "development",
		Location: weather.Location{
			City: "Vilnius",
			Lat:  54.6872,
			Lon:  25.2797,
		},
		Providers: ProvidersConfig{
			OpenMeteo: OpenMeteoConfig{
				Enabled:  true,
				BaseURL:  "https://api.open-meteo.com/v1",
				Timezone: "Europe/Vilnius",
			},
			Wttr: WttrConfig{
				Enabled: true,
				BaseURL: "https://wttr.in",
			},
			WeatherAPI: WeatherAPIConfig{
				Enabled: true,
				BaseURL: "http://api.weatherapi.com/v1",
				APIKey:  "demo",
			},
		},
		HTTP: HTTPConfig{
			Timeout:            15 * time.Second,
			Attempts:           2,
			Backoff:            "fixed",
			BackoffInterval:    time.Second,
			BackoffMaxInterval: 10 * time.Second,
			UserAgent:          "Mozilla/5.0 (compatible; WeatherApp/1.0)",
		},
		Cache: CacheConfig{
			Enabled:   false,
			Backend:   "file",
			Dir:       "cache",
			TTL:       time.Hour,
			Retention: 7 * 24 * time.Hour,
			Redis: RedisConfig{
				Addr:         "localhost:6379",
				DB:           0,
				DialTimeout:  5 * time.Second,
				ReadTimeout:  3 * time.Second,
				WriteTimeout: 3 * time.Second,
			},
		},
		Breaker: BreakerConfig{
			Enabled:     true,
			MaxFailures: 5,
			OpenTimeout: time.Minute,
		},
		Aggregator: AggregatorConfig{
			Delay:      500 * time.Millisecond,
			Deadline:   time.Minute,
			Concurrent: false,
		},
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    90 * time.Second,
			IdleTimeout:     60 * time.Second,
			RefreshInterval: 10 * time.Minute,
			SnapshotMaxAge:  30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "",
		},
		Telemetry: TelemetryConfig{
			Enabled:        false,
			Endpoint:       "tempo:4317",
			ServiceName:    "weather-report",
			ServiceVersion: "1.0.0",
		},
	}
}
