// Package config loads the claimtrail configuration from environment
// variables into an explicit struct that is constructed once at process
// start and injected into services.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Signed URL TTL bounds.
const (
	MinSignedURLTTL = 60 * time.Second
	MaxSignedURLTTL = 86400 * time.Second
)

// Config holds every tunable the pipeline reads. Business logic never
// reads ambient environment state directly.
type Config struct {
	// Object storage.
	S3Bucket     string        `env:"CLAIMTRAIL_S3_BUCKET"`
	S3Region     string        `env:"CLAIMTRAIL_S3_REGION" envDefault:"us-east-1"`
	S3Endpoint   string        `env:"CLAIMTRAIL_S3_ENDPOINT"`
	KeyPrefix    string        `env:"CLAIMTRAIL_KEY_PREFIX" envDefault:"claimtrail"`
	SignedURLTTL time.Duration `env:"CLAIMTRAIL_SIGNED_URL_TTL" envDefault:"15m"`

	// Scoring thresholds: below MinReview a message is rejected outright,
	// at or above AutoAccept it skips human review.
	ScoreMinReview  int `env:"CLAIMTRAIL_SCORE_MIN_REVIEW" envDefault:"30"`
	ScoreAutoAccept int `env:"CLAIMTRAIL_SCORE_AUTO_ACCEPT" envDefault:"60"`

	// Ingestion.
	WindowDays int           `env:"CLAIMTRAIL_WINDOW_DAYS" envDefault:"30"`
	MaxResults int64         `env:"CLAIMTRAIL_MAX_RESULTS" envDefault:"100"`
	RunTimeout time.Duration `env:"CLAIMTRAIL_RUN_TIMEOUT" envDefault:"0"`

	// Mailbox credentials directory (credentials.json + token.json).
	CredentialsDir string `env:"CLAIMTRAIL_CREDENTIALS_DIR"`
}

// Load parses configuration from the environment and normalizes bounds.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.SignedURLTTL = ClampTTL(cfg.SignedURLTTL)
	if cfg.ScoreAutoAccept < cfg.ScoreMinReview {
		return Config{}, fmt.Errorf("auto-accept threshold %d below review threshold %d",
			cfg.ScoreAutoAccept, cfg.ScoreMinReview)
	}
	return cfg, nil
}

// StorageConfigured reports whether the object storage backend is usable.
func (c Config) StorageConfigured() bool {
	return c.S3Bucket != ""
}

// ClampTTL bounds a signed URL TTL to [60s, 86400s].
func ClampTTL(ttl time.Duration) time.Duration {
	if ttl < MinSignedURLTTL {
		return MinSignedURLTTL
	}
	if ttl > MaxSignedURLTTL {
		return MaxSignedURLTTL
	}
	return ttl
}
