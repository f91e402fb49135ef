package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Service kinds accepted in services.<name>.kind.
var supportedKinds = map[string]bool{
	"sonarr":         true,
	"radarr":         true,
	"lidarr":         true,
	"readarr":        true,
	"whisparr":       true,
	"audiobookshelf": true,
	"bazarr":         true,
	"mock":           true,
}

var mediaTypes = map[string]bool{
	"tv": true, "movie": true, "music": true, "book": true, "audiobook": true, "adult": true,
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: %d is out of range", c.Server.Port))
	}

	switch c.LLM.Provider {
	case ProviderOllama, ProviderOpenAI, ProviderAnthropic, ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("llm.provider: unknown provider %q", c.LLM.Provider))
	}
	if c.LLM.Active().Model == "" {
		errs = append(errs, fmt.Errorf("llm.%s.model: must be set", c.LLM.Provider))
	}

	r := c.Resolver
	if r.MinSimilarity <= 0 || r.MinSimilarity > 1 {
		errs = append(errs, fmt.Errorf("resolver.min_similarity: %.2f must be in (0, 1]", r.MinSimilarity))
	}
	if r.HighConfidence < r.MinSimilarity || r.HighConfidence > 1 {
		errs = append(errs, fmt.Errorf("resolver.high_confidence: %.2f must be between min_similarity and 1", r.HighConfidence))
	}
	if r.MaxCandidates <= 0 {
		errs = append(errs, errors.New("resolver.max_candidates: must be positive"))
	}

	if c.Pipeline.LLMTimeout <= 0 || c.Pipeline.BackendTimeout <= 0 || c.Pipeline.CommandTimeout <= 0 {
		errs = append(errs, errors.New("pipeline: timeouts must be positive"))
	}

	claimed := map[string]string{}
	for _, name := range c.ServiceNames() {
		svc := c.Services[name]
		if svc.Disabled {
			continue
		}
		if !supportedKinds[svc.Kind] {
			errs = append(errs, fmt.Errorf("services.%s.kind: unknown service kind %q", name, svc.Kind))
			continue
		}
		if svc.Kind != "mock" {
			if u, err := url.Parse(svc.URL); err != nil || u.Scheme == "" || u.Host == "" {
				errs = append(errs, fmt.Errorf("services.%s.url: %q is not an absolute URL", name, svc.URL))
			}
		}
		for _, mt := range svc.MediaTypes {
			mt = strings.ToLower(mt)
			if !mediaTypes[mt] {
				errs = append(errs, fmt.Errorf("services.%s.media_types: unknown media type %q", name, mt))
				continue
			}
			if other, ok := claimed[mt]; ok {
				errs = append(errs, fmt.Errorf("services.%s.media_types: %s is already served by %s", name, mt, other))
				continue
			}
			claimed[mt] = name
		}
	}

	return errors.Join(errs...)
}

// MaskSecret hides all but the last four characters of a secret.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "***"
	}
	return "***" + s[len(s)-4:]
}

// Masked returns a copy of the configuration with every API key masked,
// suitable for display.
func (c *Config) Masked() *Config {
	out := *c
	out.LLM.Ollama.APIKey = MaskSecret(c.LLM.Ollama.APIKey)
	out.LLM.OpenAI.APIKey = MaskSecret(c.LLM.OpenAI.APIKey)
	out.LLM.Anthropic.APIKey = MaskSecret(c.LLM.Anthropic.APIKey)
	out.LLM.Gemini.APIKey = MaskSecret(c.LLM.Gemini.APIKey)

	out.Services = make(map[string]ServiceConfig, len(c.Services))
	for name, svc := range c.Services {
		svc.APIKey = MaskSecret(svc.APIKey)
		svc.MediaTypes = append([]string(nil), svc.MediaTypes...)
		out.Services[name] = svc
	}
	return &out
}
