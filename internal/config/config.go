// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Address     string `env:"API_ADDRESS" envDefault:":8080"`
	DBDriver    string `env:"DB_DRIVER" envDefault:"sqlite3"`
	DBDSN       string `env:"DB_DSN" envDefault:"data/midmod.db"`
	PhotoDir    string `env:"PHOTO_DIR" envDefault:"data/photos"`
	PhotoBase   string `env:"PHOTO_BASE_URL" envDefault:"/photos"`
	WeightsPath string `env:"WEIGHTS_PATH" envDefault:"configs/weights.json"`
	SeedPath    string `env:"SEED_PATH" envDefault:"data/seed.yaml"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogDev   bool   `env:"LOG_DEV" envDefault:"false"`

	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"30m"`
}

// Load reads the given .env files (a missing file is not an error) and then
// parses the environment. Variables already set win over .env values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
