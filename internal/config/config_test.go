package config

import (
	"testing"
	"time"
)

func TestClampTTL(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want time.Duration
	}{
		{0, MinSignedURLTTL},
		{30 * time.Second, MinSignedURLTTL},
		{60 * time.Second, 60 * time.Second},
		{15 * time.Minute, 15 * time.Minute},
		{86400 * time.Second, 86400 * time.Second},
		{48 * time.Hour, MaxSignedURLTTL},
	}
	for _, tt := range tests {
		if got := ClampTTL(tt.in); got != tt.want {
			t.Errorf("ClampTTL(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ScoreMinReview != 30 || cfg.ScoreAutoAccept != 60 {
		t.Errorf("default thresholds = %d/%d, want 30/60", cfg.ScoreMinReview, cfg.ScoreAutoAccept)
	}
	if cfg.WindowDays != 30 {
		t.Errorf("default window days = %d, want 30", cfg.WindowDays)
	}
	if cfg.StorageConfigured() {
		t.Error("storage reported configured with no bucket")
	}
}

func TestLoad_InvalidThresholds(t *testing.T) {
	t.Setenv("CLAIMTRAIL_SCORE_MIN_REVIEW", "80")
	t.Setenv("CLAIMTRAIL_SCORE_AUTO_ACCEPT", "40")
	if _, err := Load(); err == nil {
		t.Error("Load accepted auto-accept threshold below review threshold")
	}
}
