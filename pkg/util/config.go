package util

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the typed view over the viper keys used by the fleetmap binaries.
type Config struct {
	APIPort        int
	WebsocketPort  int
	APITimeout     time.Duration
	RateLimit      float64
	RateLimitBurst int

	RefreshInterval time.Duration
	FrameRate       int
	DefaultZoom     float64
	CenterLat       float64
	CenterLon       float64
	HasCenter       bool

	RoutingURL       string
	RoutingTimeout   time.Duration
	RoutingRate      float64
	RoutingBurst     int
	RoutingCacheSize int
	RoutingWorkers   int

	SimulatorEnabled   bool
	SimulatorAgents    int
	SimulatorCustomers int
	SimulatorStepKm    float64
}

func setDefaults() {
	viper.SetDefault("API_PORT", 6060)
	viper.SetDefault("WEBSOCKET_PORT", 6666)
	viper.SetDefault("API_TIMEOUT", "30s")
	viper.SetDefault("API_RATE_LIMIT", 20.0)
	viper.SetDefault("API_RATE_LIMIT_BURST", 40)

	viper.SetDefault("REFRESH_INTERVAL", "10s")
	viper.SetDefault("FRAME_RATE", 60)
	viper.SetDefault("DEFAULT_ZOOM", 13.0)

	viper.SetDefault("ROUTING_URL", "")
	viper.SetDefault("ROUTING_TIMEOUT", "5s")
	viper.SetDefault("ROUTING_RATE", 10.0)
	viper.SetDefault("ROUTING_BURST", 5)
	viper.SetDefault("ROUTING_CACHE_SIZE", 1024)
	viper.SetDefault("ROUTING_WORKERS", 4)

	viper.SetDefault("SIMULATOR_ENABLED", false)
	viper.SetDefault("SIMULATOR_AGENTS", 5)
	viper.SetDefault("SIMULATOR_CUSTOMERS", 12)
	viper.SetDefault("SIMULATOR_STEP_KM", 0.15)
}

// ReadConfig loads config.{yaml,json,toml,...} from configDir (./data/ when empty).
// A missing config file is not an error: defaults and environment variables still apply.
func ReadConfig(configDir string) error {
	if configDir == "" {
		configDir = "./data/"
	}
	viper.SetConfigName("config")
	viper.AddConfigPath(configDir)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("fatal error config file: %w", err)
	}
	return nil
}

func LoadConfig() Config {
	return Config{
		APIPort:        viper.GetInt("API_PORT"),
		WebsocketPort:  viper.GetInt("WEBSOCKET_PORT"),
		APITimeout:     viper.GetDuration("API_TIMEOUT"),
		RateLimit:      viper.GetFloat64("API_RATE_LIMIT"),
		RateLimitBurst: viper.GetInt("API_RATE_LIMIT_BURST"),

		RefreshInterval: viper.GetDuration("REFRESH_INTERVAL"),
		FrameRate:       viper.GetInt("FRAME_RATE"),
		DefaultZoom:     viper.GetFloat64("DEFAULT_ZOOM"),
		CenterLat:       viper.GetFloat64("CENTER_LAT"),
		CenterLon:       viper.GetFloat64("CENTER_LON"),
		HasCenter:       viper.IsSet("CENTER_LAT") && viper.IsSet("CENTER_LON"),

		RoutingURL:       viper.GetString("ROUTING_URL"),
		RoutingTimeout:   viper.GetDuration("ROUTING_TIMEOUT"),
		RoutingRate:      viper.GetFloat64("ROUTING_RATE"),
		RoutingBurst:     viper.GetInt("ROUTING_BURST"),
		RoutingCacheSize: viper.GetInt("ROUTING_CACHE_SIZE"),
		RoutingWorkers:   viper.GetInt("ROUTING_WORKERS"),

		SimulatorEnabled:   viper.GetBool("SIMULATOR_ENABLED"),
		SimulatorAgents:    viper.GetInt("SIMULATOR_AGENTS"),
		SimulatorCustomers: viper.GetInt("SIMULATOR_CUSTOMERS"),
		SimulatorStepKm:    viper.GetFloat64("SIMULATOR_STEP_KM"),
	}
}
