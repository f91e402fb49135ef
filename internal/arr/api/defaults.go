package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/arrmate/arrmate/internal/arr/types"
)

// QualityProfile is an entry of /qualityprofile.
type QualityProfile struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// RootFolder is an entry of /rootfolder.
type RootFolder struct {
	ID   int    `json:"id"`
	Path string `json:"path"`
}

// AddDefaults are the profile and folder an ADD is submitted with.
type AddDefaults struct {
	QualityProfileID int
	RootFolderPath   string
}

// ResolveAddDefaults picks the quality profile and root folder for an ADD.
// Preference order for the profile: the name requested in opts, the name
// configured for the service, a profile whose name contains the requested
// one, then the first profile. Root folders follow the same order without
// the substring step.
func ResolveAddDefaults(ctx context.Context, c *Client, apiVersion string, cfg *types.ClientConfig, opts types.AddOptions) (AddDefaults, error) {
	var profiles []QualityProfile
	if err := c.Get(ctx, "/api/"+apiVersion+"/qualityprofile", nil, &profiles); err != nil {
		return AddDefaults{}, fmt.Errorf("failed to list quality profiles: %w", err)
	}
	var folders []RootFolder
	if err := c.Get(ctx, "/api/"+apiVersion+"/rootfolder", nil, &folders); err != nil {
		return AddDefaults{}, fmt.Errorf("failed to list root folders: %w", err)
	}
	if len(profiles) == 0 || len(folders) == 0 {
		return AddDefaults{}, types.ErrNoDefaults
	}

	return AddDefaults{
		QualityProfileID: pickProfile(profiles, opts.QualityProfile, cfg.QualityProfile),
		RootFolderPath:   pickFolder(folders, opts.RootFolder, cfg.RootFolder),
	}, nil
}

func pickProfile(profiles []QualityProfile, requested, configured string) int {
	for _, name := range []string{requested, configured} {
		if name == "" {
			continue
		}
		for _, p := range profiles {
			if strings.EqualFold(p.Name, name) {
				return p.ID
			}
		}
	}
	if requested != "" {
		needle := strings.ToLower(requested)
		for _, p := range profiles {
			if strings.Contains(strings.ToLower(p.Name), needle) {
				return p.ID
			}
		}
	}
	return profiles[0].ID
}

func pickFolder(folders []RootFolder, requested, configured string) string {
	for _, path := range []string{requested, configured} {
		if path == "" {
			continue
		}
		for _, f := range folders {
			if strings.TrimRight(f.Path, "/") == strings.TrimRight(path, "/") {
				return f.Path
			}
		}
	}
	return folders[0].Path
}
