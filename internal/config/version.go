package config

// Build information injected at build time via ldflags.
//
// Build with:
//
//	go build -ldflags "-X 'github.com/arrmate/arrmate/internal/config.Version=v1.2.0' \
//	                   -X 'github.com/arrmate/arrmate/internal/config.Commit=abc123'"
var (
	Version = "dev"
	Commit  = ""
)

// IsDevBuild reports whether the binary was built without a release version.
func IsDevBuild() bool {
	return Version == "" || Version == "dev"
}
