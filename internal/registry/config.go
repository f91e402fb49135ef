package registry

import (
	"errors"
	"fmt"
	"time"

	"github.com/arrmate/arrmate/internal/arr/types"
	"github.com/arrmate/arrmate/internal/config"
	"github.com/arrmate/arrmate/internal/intent"
)

// FromConfig builds services for every enabled entry of cfg.Services.
// Services without their own timeout use defaultTimeout.
func FromConfig(cfg *config.Config, defaultTimeout time.Duration) ([]*Service, error) {
	var (
		services []*Service
		errs     []error
	)
	for _, name := range cfg.ServiceNames() {
		sc := cfg.Services[name]
		if sc.Disabled {
			continue
		}

		mediaTypes := make([]intent.MediaType, 0, len(sc.MediaTypes))
		for _, raw := range sc.MediaTypes {
			mt, err := intent.ParseMediaType(raw)
			if err != nil {
				errs = append(errs, fmt.Errorf("service %q: %w", name, err))
				continue
			}
			mediaTypes = append(mediaTypes, mt)
		}

		timeout := sc.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		svc, err := NewService(name, types.Kind(sc.Kind), &types.ClientConfig{
			Name:           name,
			URL:            sc.URL,
			APIKey:         sc.APIKey,
			Timeout:        timeout,
			QualityProfile: sc.QualityProfile,
			RootFolder:     sc.RootFolder,
		}, mediaTypes)
		if err != nil {
			errs = append(errs, fmt.Errorf("service %q: %w", name, err))
			continue
		}
		services = append(services, svc)
	}
	return services, errors.Join(errs...)
}
