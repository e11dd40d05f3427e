package timeouts_test

import (
	"testing"
	"time"

	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
)

func TestDefaults(t *testing.T) {
	timeouts.Reset()
	if got := timeouts.Short(); got != timeouts.DefaultShort {
		t.Errorf("Short() = %v, want %v", got, timeouts.DefaultShort)
	}
	if got := timeouts.Long(); got != timeouts.DefaultLong {
		t.Errorf("Long() = %v, want %v", got, timeouts.DefaultLong)
	}
}

func TestConfigure_ZeroKeepsCurrent(t *testing.T) {
	defer timeouts.Reset()

	timeouts.Configure(timeouts.Config{Short: 7 * time.Second})

	if got := timeouts.Short(); got != 7*time.Second {
		t.Errorf("Short() = %v, want 7s", got)
	}
	if got := timeouts.Medium(); got != timeouts.DefaultMedium {
		t.Errorf("Medium() = %v, want default %v", got, timeouts.DefaultMedium)
	}
}
