package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the control server configuration, read from the environment.
type Config struct {
	Host              string        `env:"PARTY_HOST" envDefault:"0.0.0.0"`
	Port              int           `env:"PARTY_PORT" envDefault:"4173"`
	Name              string        `env:"PARTY_NAME" envDefault:"Headphone Party"`
	KeepAliveInterval time.Duration `env:"PARTY_KEEPALIVE_INTERVAL" envDefault:"15s"`
}

// Load reads a .env file if one is present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
