// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads process configuration from the environment (and
// an optional .env file) into a single typed struct shared by
// cmd/rbacd and cmd/rbacsync.
package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process-wide configuration for the authorization core.
//
// Purpose: Typed environment configuration for every entrypoint.
// Domain: Platform (Infrastructure)
type Config struct {
	// HTTP server
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// PostgreSQL
	DBHost         string `env:"DB_HOST" envDefault:"localhost"`
	DBPort         string `env:"DB_PORT" envDefault:"5432"`
	DBUser         string `env:"DB_USER" envDefault:"opentrusty"`
	DBPassword     string `env:"DB_PASSWORD"`
	DBName         string `env:"DB_NAME" envDefault:"opentrusty"`
	DBSSLMode      string `env:"DB_SSLMODE" envDefault:"disable"`
	DBMaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	DBMaxIdleConns int    `env:"DB_MAX_IDLE_CONNS" envDefault:"20"`

	// Redis read-through cache (optional: empty URL disables the cache)
	RedisURL string `env:"REDIS_URL"`
	CacheTTL int    `env:"CACHE_TTL_SECONDS" envDefault:"30"`

	// Kafka audit sink (optional: no brokers disables it)
	KafkaBrokers string `env:"KAFKA_BROKERS"`
	KafkaTopic   string `env:"KAFKA_AUDIT_TOPIC" envDefault:"opentrusty.audit"`

	// Request Interceptor (C4)
	BypassPrefixes string `env:"BYPASS_PREFIXES"`

	// Logging
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
}

// BypassPrefixList splits BypassPrefixes on commas, trimming whitespace.
// An empty Config field yields a nil slice so callers fall back to
// middleware.DefaultBypassPrefixes.
func (c Config) BypassPrefixList() []string {
	if strings.TrimSpace(c.BypassPrefixes) == "" {
		return nil
	}
	parts := strings.Split(c.BypassPrefixes, ",")
	prefixes := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	return prefixes
}

// KafkaBrokerList splits KafkaBrokers on commas, trimming whitespace.
func (c Config) KafkaBrokerList() []string {
	if strings.TrimSpace(c.KafkaBrokers) == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	brokers := make([]string, 0, len(parts))
	for _, b := range parts {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

var defaultEnvLoaded sync.Once

// Load reads environment variables (loading ./.env once if present) into
// a new Config.
func Load() (Config, error) {
	defaultEnvLoaded.Do(func() {
		_ = godotenv.Load()
	})

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse configuration: %w", err)
	}
	return cfg, nil
}

// MustLoad works like Load but panics on failure, for use at process
// start where a bad configuration should fail fast.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
