package registry

import (
	"github.com/arrmate/arrmate/internal/arr/mock"
	"github.com/arrmate/arrmate/internal/arr/types"
	"github.com/arrmate/arrmate/internal/intent"
)

// DemoServices returns in-memory TV, movie and subtitle services seeded with
// a small library, used by serve --demo.
func DemoServices() []*Service {
	return []*Service{
		{
			Name:       "sonarr",
			Kind:       types.KindMock,
			URL:        "demo://sonarr",
			MediaTypes: []intent.MediaType{intent.MediaTypeTV},
			Client:     mock.NewDemo().WithKind(types.KindSonarr),
		},
		{
			Name:       "radarr",
			Kind:       types.KindMock,
			URL:        "demo://radarr",
			MediaTypes: []intent.MediaType{intent.MediaTypeMovie},
			Client:     mock.NewDemoMovies().WithKind(types.KindRadarr),
		},
		{
			Name:      "bazarr",
			Kind:      types.KindBazarr,
			URL:       "demo://bazarr",
			Subtitles: mock.NewSubtitles(),
		},
	}
}
