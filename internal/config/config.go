// Package config loads service settings from the environment, an optional
// .env file and an optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	JWTSecret     string
	TokenTTL      time.Duration
	LogLevel      string
	LogFormat     string
	BcryptCost    int
	HashWorkers   int
	ViewTTL       time.Duration
	ConsumerName  string
}

// RedisEnabled reports whether events and the view projection are wired.
func (c Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8082")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", "24h")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("bcrypt_cost", 12)
	v.SetDefault("hash_workers", runtime.NumCPU())
	v.SetDefault("view_ttl", "0s")
	v.SetDefault("consumer_name", defaultConsumerName())
}

// defaultConsumerName identifies this instance on the event streams. It also
// names the instance's own billing consumer group, so it must differ between
// instances.
func defaultConsumerName() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return "user-service-" + host
	}
	return "user-service-1"
}

// Load reads configuration. envFile is loaded best effort and never
// overrides variables already set; configFile is optional.
func Load(v *viper.Viper, envFile, configFile string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
			}
		}
	}

	cfg := Config{
		Port:          v.GetString("port"),
		RedisAddr:     v.GetString("redis_addr"),
		RedisPassword: v.GetString("redis_password"),
		RedisDB:       v.GetInt("redis_db"),
		JWTSecret:     v.GetString("jwt_secret"),
		TokenTTL:      v.GetDuration("token_ttl"),
		LogLevel:      v.GetString("log_level"),
		LogFormat:     v.GetString("log_format"),
		BcryptCost:    v.GetInt("bcrypt_cost"),
		HashWorkers:   v.GetInt("hash_workers"),
		ViewTTL:       v.GetDuration("view_ttl"),
		ConsumerName:  v.GetString("consumer_name"),
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("port must not be empty")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("bcrypt_cost must be between 4 and 31, got %d", c.BcryptCost)
	}
	if c.HashWorkers < 1 {
		return fmt.Errorf("hash_workers must be positive, got %d", c.HashWorkers)
	}
	if c.RedisEnabled() && c.ConsumerName == "" {
		return errors.New("consumer_name must not be empty when redis is configured")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be positive, got %s", c.TokenTTL)
	}
	return nil
}
