package memory

import (
	"context"
	"errors"
	"math"
	"runtime/debug"
	"testing"
	"time"
)

// restoreLimit puts the runtime soft limit back after a test changes it.
func restoreLimit(t *testing.T) {
	t.Helper()
	prev := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(prev) })
}

func TestConfigureFromEnv(t *testing.T) {
	tests := []struct {
		name       string
		env        map[string]string
		wantSource string
		wantLimit  int64
	}{
		{"nothing set", map[string]string{"GOMEMLIMIT": "", "MEMORY_LIMIT": ""}, "none", 0},
		{"container limit", map[string]string{"GOMEMLIMIT": "", "MEMORY_LIMIT": "1000000000"}, "MEMORY_LIMIT", 850000000},
		{"custom ratio", map[string]string{"GOMEMLIMIT": "", "MEMORY_LIMIT": "1000000000", "MEMORY_RATIO": "0.5"}, "MEMORY_LIMIT", 500000000},
		{"bad ratio falls back", map[string]string{"GOMEMLIMIT": "", "MEMORY_LIMIT": "1000000000", "MEMORY_RATIO": "2"}, "MEMORY_LIMIT", 850000000},
		{"invalid limit", map[string]string{"GOMEMLIMIT": "", "MEMORY_LIMIT": "lots"}, "none", 0},
		{"negative limit", map[string]string{"GOMEMLIMIT": "", "MEMORY_LIMIT": "-5"}, "none", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restoreLimit(t)
			t.Setenv("MEMORY_RATIO", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got := ConfigureFromEnv()
			if got.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", got.Source, tt.wantSource)
			}
			if got.GoMemLimit != tt.wantLimit {
				t.Errorf("GoMemLimit = %d, want %d", got.GoMemLimit, tt.wantLimit)
			}
			if tt.wantLimit > 0 && debug.SetMemoryLimit(-1) != tt.wantLimit {
				t.Errorf("runtime limit = %d, want %d", debug.SetMemoryLimit(-1), tt.wantLimit)
			}
		})
	}
}

func TestParseBudget(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"", 0},
		{"off", 0},
		{"Unlimited", 0},
		{"1048576", 1 << 20},
		{"256MiB", 256 << 20},
		{"1 GiB", 1 << 30},
		{"128M", 128_000_000},
	}
	for _, tt := range tests {
		got, err := ParseBudget(tt.in)
		if err != nil {
			t.Errorf("ParseBudget(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBudget(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}

	if _, err := ParseBudget("plenty"); err == nil {
		t.Error("ParseBudget(plenty) succeeded")
	}
}

func TestBudgetFromEnv(t *testing.T) {
	t.Run("explicit", func(t *testing.T) {
		t.Setenv(EnvBudget, "64MiB")
		b := BudgetFromEnv()
		if b.Bytes != 64<<20 || b.Source != EnvBudget {
			t.Errorf("BudgetFromEnv() = %+v", b)
		}
		if b.String() != "64 MiB" {
			t.Errorf("String() = %q", b.String())
		}
	})

	t.Run("empty disables", func(t *testing.T) {
		restoreLimit(t)
		t.Setenv(EnvBudget, "")
		// An empty value is "set" and disables the check.
		if b := BudgetFromEnv(); b.Bytes != 0 || b.Source != EnvBudget {
			t.Errorf("BudgetFromEnv() with empty env = %+v", b)
		}
	})

	t.Run("invalid falls back", func(t *testing.T) {
		restoreLimit(t)
		debug.SetMemoryLimit(400 << 20)
		t.Setenv(EnvBudget, "plenty")
		b := BudgetFromEnv()
		if b.Source != "GOMEMLIMIT" || b.Bytes != 200<<20 {
			t.Errorf("BudgetFromEnv() = %+v", b)
		}
	})

	t.Run("no limit", func(t *testing.T) {
		restoreLimit(t)
		debug.SetMemoryLimit(math.MaxInt64)
		t.Setenv(EnvBudget, "bad")
		if b := BudgetFromEnv(); b.Bytes != 0 || b.String() != "unlimited" {
			t.Errorf("BudgetFromEnv() = %+v", b)
		}
	})
}

func fakeMonitor(limit int64, alloc *uint64) *Monitor {
	m := NewMonitor(MonitorConfig{
		LimitBytes:        limit,
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     time.Millisecond,
	})
	m.readAlloc = func() uint64 { return *alloc }
	return m
}

func TestMonitorPausesAndResumes(t *testing.T) {
	alloc := uint64(50)
	m := fakeMonitor(100, &alloc)

	m.check()
	if m.Paused() || m.Usage() != 0.5 {
		t.Fatalf("Paused() = %v, Usage() = %v", m.Paused(), m.Usage())
	}

	alloc = 90
	m.check()
	if !m.Paused() {
		t.Fatal("expected pause at 90%")
	}

	done := make(chan error, 1)
	go func() { done <- m.Wait(context.Background()) }()

	select {
	case <-done:
		t.Fatal("Wait() returned while paused")
	case <-time.After(20 * time.Millisecond):
	}

	// Between the water marks the monitor stays paused.
	alloc = 75
	m.check()
	if !m.Paused() {
		t.Fatal("resumed above the high water mark")
	}

	alloc = 10
	m.check()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Wait() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait() did not return after recovery")
	}
}

func TestMonitorWaitCanceled(t *testing.T) {
	alloc := uint64(99)
	m := fakeMonitor(100, &alloc)
	m.check()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := m.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want DeadlineExceeded", err)
	}
}

func TestMonitorRunReleasesOnStop(t *testing.T) {
	alloc := uint64(99)
	m := fakeMonitor(100, &alloc)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(stopped)
	}()

	deadline := time.Now().Add(time.Second)
	for !m.Paused() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-stopped

	if m.Paused() {
		t.Error("monitor still paused after Run returned")
	}
	if err := m.Wait(context.Background()); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
}

func TestNilAndUnlimitedMonitor(t *testing.T) {
	var nilMonitor *Monitor
	if err := nilMonitor.Wait(context.Background()); err != nil {
		t.Errorf("nil Wait() error = %v", err)
	}

	restoreLimit(t)
	debug.SetMemoryLimit(math.MaxInt64)
	m := NewMonitor(DefaultMonitorConfig())
	m.Run(context.Background()) // returns immediately without a limit
	if m.Usage() != 0 {
		t.Errorf("Usage() = %v", m.Usage())
	}
}
