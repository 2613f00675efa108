package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`

	// CleanupDelay is the debounce window before the post-leave room sweep.
	CleanupDelay time.Duration `mapstructure:"cleanup_delay"`
	// EngineTimeout bounds every call into the media engine.
	EngineTimeout time.Duration `mapstructure:"engine_timeout"`

	AnnouncedIP string   `mapstructure:"announced_ip"`
	RTCPortMin  uint16   `mapstructure:"rtc_port_min"`
	RTCPortMax  uint16   `mapstructure:"rtc_port_max"`
	ICELite     bool     `mapstructure:"ice_lite"`
	STUNServers []string `mapstructure:"stun_servers"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("token_ttl", "24h")
	v.SetDefault("cleanup_delay", "3s")
	v.SetDefault("engine_timeout", "10s")
	v.SetDefault("announced_ip", "")
	v.SetDefault("rtc_port_min", 40000)
	v.SetDefault("rtc_port_max", 49999)
	v.SetDefault("ice_lite", true)
	v.SetDefault("stun_servers", []string{"stun:stun.l.google.com:19302"})

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Static: %s\n", cfg.Mode, cfg.Port, cfg.StaticPath)
	return &cfg, nil
}
