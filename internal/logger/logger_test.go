package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestNewDefaultsToInfoLevel(t *testing.T) {
	t.Setenv("ENV", "production")
	if got := New().GetLevel(); got != zerolog.InfoLevel {
		t.Errorf("level = %s, want %s", got, zerolog.InfoLevel)
	}
}

func TestNewUsesDebugLevelInDevelopment(t *testing.T) {
	t.Setenv("ENV", "development")
	if got := New().GetLevel(); got != zerolog.DebugLevel {
		t.Errorf("level = %s, want %s", got, zerolog.DebugLevel)
	}
}
