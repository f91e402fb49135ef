package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/arrmate/arrmate/internal/intent"
)

func fastRetry() RetryConfig {
	return RetryConfig{InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, MaxAttempts: 3, Multiplier: 2}
}

func TestIsNetworkError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("dial tcp 127.0.0.1:8989: connect: connection refused"), true},
		{errors.New("context deadline exceeded (Client.Timeout exceeded)"), true},
		{errors.New("unauthorized"), false},
	}
	for _, tt := range tests {
		if got := IsNetworkError(tt.err); got != tt.want {
			t.Errorf("IsNetworkError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestWithRetry(t *testing.T) {
	t.Run("retries network errors", func(t *testing.T) {
		attempts := 0
		err := WithRetry(context.Background(), "test", fastRetry(), func(context.Context) error {
			attempts++
			if attempts < 3 {
				return errors.New("connection refused")
			}
			return nil
		}, zerolog.Nop())
		if err != nil || attempts != 3 {
			t.Errorf("WithRetry() = %v after %d attempts, want nil after 3", err, attempts)
		}
	})

	t.Run("does not retry other errors", func(t *testing.T) {
		attempts := 0
		err := WithRetry(context.Background(), "test", fastRetry(), func(context.Context) error {
			attempts++
			return errors.New("401 unauthorized")
		}, zerolog.Nop())
		if err == nil || attempts != 1 {
			t.Errorf("WithRetry() = %v after %d attempts, want error after 1", err, attempts)
		}
	})

	t.Run("stops when context ends", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cfg := fastRetry()
		cfg.InitialDelay = time.Hour
		err := WithRetry(ctx, "test", cfg, func(context.Context) error {
			cancel()
			return errors.New("no such host")
		}, zerolog.Nop())
		if !errors.Is(err, context.Canceled) {
			t.Errorf("WithRetry() = %v, want context.Canceled", err)
		}
	})
}

type fakeRefresher struct {
	calls   int
	results [][]intent.ServiceInfo
}

func (f *fakeRefresher) Refresh(context.Context) ([]intent.ServiceInfo, error) {
	r := f.results[min(f.calls, len(f.results)-1)]
	f.calls++
	return r, nil
}

func TestProbeServices(t *testing.T) {
	down := intent.ServiceInfo{Name: "sonarr", Error: "dial tcp: connection refused"}
	up := intent.ServiceInfo{Name: "sonarr", Available: true, Version: "4.0.0"}
	badKey := intent.ServiceInfo{Name: "radarr", Error: "unauthorized"}

	t.Run("waits for unreachable services", func(t *testing.T) {
		f := &fakeRefresher{results: [][]intent.ServiceInfo{{down, badKey}, {up, badKey}}}
		infos, err := ProbeServices(context.Background(), f, fastRetry(), zerolog.Nop())
		if err != nil {
			t.Fatalf("ProbeServices() error = %v", err)
		}
		if f.calls != 2 {
			t.Errorf("Refresh called %d times, want 2", f.calls)
		}
		if !infos[0].Available || infos[1].Available {
			t.Errorf("ProbeServices() = %+v", infos)
		}
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		f := &fakeRefresher{results: [][]intent.ServiceInfo{{down}}}
		infos, err := ProbeServices(context.Background(), f, fastRetry(), zerolog.Nop())
		if err == nil {
			t.Fatal("ProbeServices() error = nil, want unreachable error")
		}
		if f.calls != 3 || len(infos) != 1 {
			t.Errorf("calls = %d, infos = %+v", f.calls, infos)
		}
	})
}
