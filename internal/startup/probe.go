package startup

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arrmate/arrmate/internal/intent"
)

// Refresher probes every configured service. *registry.Registry implements it.
type Refresher interface {
	Refresh(ctx context.Context) ([]intent.ServiceInfo, error)
}

// unreachableError lists services that failed with a network error.
type unreachableError struct {
	services []string
	causes   []string
}

func (e *unreachableError) Error() string {
	return fmt.Sprintf("unreachable: %s (%s)", strings.Join(e.services, ", "), strings.Join(e.causes, "; "))
}

// ProbeServices checks every service at startup, retrying while some of them
// cannot be reached over the network. Services that answer with any other
// error (bad API key, wrong kind) are reported once and not retried. The last
// known status is returned even when retries run out; the error is only for
// logging, serving starts regardless.
func ProbeServices(ctx context.Context, services Refresher, cfg RetryConfig, logger zerolog.Logger) ([]intent.ServiceInfo, error) {
	var infos []intent.ServiceInfo
	err := WithRetry(ctx, "probe services", cfg, func(ctx context.Context) error {
		var err error
		infos, err = services.Refresh(ctx)
		if err != nil {
			return err
		}
		unreachable := &unreachableError{}
		for _, info := range infos {
			if !info.Available && looksLikeNetwork(info.Error) {
				unreachable.services = append(unreachable.services, info.Name)
				unreachable.causes = append(unreachable.causes, info.Error)
			}
		}
		if len(unreachable.services) > 0 {
			// reads as a network error to WithRetry
			return fmt.Errorf("dial tcp: %w", unreachable)
		}
		return nil
	}, logger)

	for _, info := range infos {
		event := logger.Info()
		if !info.Available {
			event = logger.Warn().Str("error", info.Error)
		}
		event.Str("service", info.Name).Str("kind", info.Kind).Str("version", info.Version).
			Bool("available", info.Available).Msg("Service probed")
	}
	return infos, err
}
