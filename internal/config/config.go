package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	SPI    SPIConfig    `mapstructure:"spi"`
	Analog AnalogConfig `mapstructure:"analog"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// SPIConfig addresses the board. Mode 1 at 20 kHz is fixed by the board
// protocol and not configurable.
type SPIConfig struct {
	Bus    int `mapstructure:"bus"`
	Device int `mapstructure:"device"`
}

type AnalogConfig struct {
	ConfigPath   string        `mapstructure:"config_path"`
	Fixture      bool          `mapstructure:"fixture"`
	FixturePath  string        `mapstructure:"fixture_path"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// Auth Configuration
type AuthConfig struct {
	JWTSecretEnv   string               `mapstructure:"jwt_secret_env"`
	AccessTokenTTL time.Duration        `mapstructure:"access_token_ttl"`
	Users          []UserConfig         `mapstructure:"users"`
	MachineTokens  []MachineTokenConfig `mapstructure:"machine_tokens"`
}

// UserConfig is an API account. PasswordHash is an argon2id encoded hash.
type UserConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
	Role         string `mapstructure:"role"`
}

// MachineTokenConfig is a static token for other machines. TokenHash is
// the hex sha256 of the token.
type MachineTokenConfig struct {
	Name      string `mapstructure:"name"`
	TokenHash string `mapstructure:"token_hash"`
	Role      string `mapstructure:"role"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("spi.bus", 0)
	v.SetDefault("spi.device", 1)

	v.SetDefault("analog.config_path", "configs/analog.json")
	v.SetDefault("analog.fixture", false)
	v.SetDefault("analog.fixture_path", "devdata/analog.yaml")
	v.SetDefault("analog.poll_interval", "0s")

	// Auth Defaults
	v.SetDefault("auth.jwt_secret_env", "JWT_SECRET")
	v.SetDefault("auth.access_token_ttl", "60m")

	v.SetDefault("log.development", false)
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	setDefaults(v)

	// OMC_ANALOG_FIXTURE=true etc.
	v.SetEnvPrefix("OMC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.SPI.Bus < 0 {
		return fmt.Errorf("invalid spi.bus %d", c.SPI.Bus)
	}
	if c.SPI.Device < 0 {
		return fmt.Errorf("invalid spi.device %d", c.SPI.Device)
	}
	if c.Analog.PollInterval < 0 {
		return fmt.Errorf("invalid analog.poll_interval %s", c.Analog.PollInterval)
	}
	return nil
}

// JWT Secret aus Environment Variable laden
func (a *AuthConfig) GetJWTSecret() string {
	envVar := a.JWTSecretEnv
	if envVar == "" {
		envVar = "JWT_SECRET" // Fallback
	}

	secret := os.Getenv(envVar)
	if secret == "" {
		// Development Fallback (MIT WARNING!)
		return devJWTSecret
	}
	return secret
}

const devJWTSecret = "dev-secret-change-in-production-min-32-chars"

// IsProductionReady reports whether a real JWT secret is configured.
func (a *AuthConfig) IsProductionReady() bool {
	secret := a.GetJWTSecret()
	return secret != devJWTSecret && len(secret) >= 32
}
