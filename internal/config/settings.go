// Package config provides the strongly-typed settings consumed by the link
// tagging pipeline. Settings are constructed once through a validating
// loader, range-clamped, and treated as immutable afterwards.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"linktagger/internal/domain/entity"
)

// Priority determines the order in which fallback providers are consulted
// when a direct fetch is classified as blocked. It is only meaningful when
// both fallback providers are enabled.
type Priority string

const (
	// ArchiveFirst consults the archival-snapshot provider before the
	// rendering-proxy provider.
	ArchiveFirst Priority = "archive-first"

	// ProxyFirst consults the rendering-proxy provider before the
	// archival-snapshot provider.
	ProxyFirst Priority = "proxy-first"
)

// IsValid reports whether the priority is one of the two known orderings.
func (p Priority) IsValid() bool {
	return p == ArchiveFirst || p == ProxyFirst
}

// Range limits enforced by Validate. Out-of-range numeric values are clamped
// rather than rejected so a hand-edited settings file cannot brick a batch.
const (
	MinPacingDelay = 0
	MaxPacingDelay = 5000 * time.Millisecond

	MinRedirectHops = 1
	MaxRedirectHops = 10

	MinCacheCapacity = 10
	MaxCacheCapacity = 10000
)

// DefaultURLPattern matches bare http/https URLs in free text. It is
// deliberately permissive; boundary trimming happens in the matcher.
const DefaultURLPattern = `https?://[^\s)<>\[\]{}"']+`

// Settings holds every user-configurable knob of the tagging pipeline.
type Settings struct {
	// URLPattern is the user-supplied regular expression used to find
	// candidate URLs. An invalid pattern is a configuration error and
	// aborts a whole batch.
	URLPattern string `yaml:"url_pattern"`

	// SiteRules are ordered per-site title extraction overrides, tried
	// before generic HTML title parsing.
	SiteRules []entity.SiteRule `yaml:"site_rules"`

	// ArchiveEnabled toggles the archival-snapshot fallback provider.
	ArchiveEnabled bool `yaml:"archive_enabled"`

	// ProxyEnabled toggles the rendering-proxy fallback provider.
	ProxyEnabled bool `yaml:"proxy_enabled"`

	// ProxyAPIKey is the optional credential sent to the rendering-proxy
	// service. Empty means anonymous access.
	ProxyAPIKey string `yaml:"proxy_api_key"`

	// FallbackPriority orders the two providers when both are enabled.
	FallbackPriority Priority `yaml:"fallback_priority"`

	// PacingDelay is the pause inserted between candidate resolutions to
	// respect third-party rate limits. Clamped to 0-5000ms.
	PacingDelay time.Duration `yaml:"pacing_delay"`

	// FollowRedirects controls whether the fetch pipeline chases 3xx
	// responses at all.
	FollowRedirects bool `yaml:"follow_redirects"`

	// MaxRedirects bounds the redirect chain length. Clamped to 1-10.
	MaxRedirects int `yaml:"max_redirects"`

	// CacheCapacity bounds the redirect cache entry count. Clamped to
	// 10-10000.
	CacheCapacity int `yaml:"cache_capacity"`

	// FetchTimeout is the per-request HTTP timeout.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	// MaxBodySize caps response body reads in bytes.
	MaxBodySize int64 `yaml:"max_body_size"`
}

// Default returns production-ready settings: both fallbacks on,
// archive-first ordering, half-second pacing, redirects followed up to
// five hops.
func Default() Settings {
	return Settings{
		URLPattern:       DefaultURLPattern,
		ArchiveEnabled:   true,
		ProxyEnabled:     true,
		FallbackPriority: ArchiveFirst,
		PacingDelay:      500 * time.Millisecond,
		FollowRedirects:  true,
		MaxRedirects:     5,
		CacheCapacity:    200,
		FetchTimeout:     10 * time.Second,
		MaxBodySize:      10 * 1024 * 1024,
	}
}

// Validate checks the settings and clamps numeric values into their allowed
// ranges. It returns an error only for values that cannot be repaired by
// clamping: an uncompilable URL pattern or an unknown fallback priority.
//
// Site rule patterns are NOT validated here. An invalid override pattern is
// a per-rule condition reported and skipped at parse time, so one bad rule
// never aborts a batch (unlike a bad URL pattern, which poisons every
// candidate).
func (s *Settings) Validate() error {
	if s.URLPattern == "" {
		s.URLPattern = DefaultURLPattern
	}
	if _, err := regexp.Compile("(?i)(?:" + s.URLPattern + ")"); err != nil {
		return fmt.Errorf("invalid url_pattern: %w", err)
	}

	if s.FallbackPriority == "" {
		s.FallbackPriority = ArchiveFirst
	}
	if !s.FallbackPriority.IsValid() {
		return fmt.Errorf("invalid fallback_priority %q (want %q or %q)",
			s.FallbackPriority, ArchiveFirst, ProxyFirst)
	}

	if s.PacingDelay < MinPacingDelay {
		s.PacingDelay = MinPacingDelay
	}
	if s.PacingDelay > MaxPacingDelay {
		s.PacingDelay = MaxPacingDelay
	}

	if s.MaxRedirects < MinRedirectHops {
		s.MaxRedirects = MinRedirectHops
	}
	if s.MaxRedirects > MaxRedirectHops {
		s.MaxRedirects = MaxRedirectHops
	}

	if s.CacheCapacity < MinCacheCapacity {
		s.CacheCapacity = MinCacheCapacity
	}
	if s.CacheCapacity > MaxCacheCapacity {
		s.CacheCapacity = MaxCacheCapacity
	}

	if s.FetchTimeout <= 0 {
		s.FetchTimeout = 10 * time.Second
	}
	if s.MaxBodySize <= 0 {
		s.MaxBodySize = 10 * 1024 * 1024
	}

	return nil
}

// Load reads settings from a YAML file, fills defaults for absent fields and
// validates the result. The returned Settings must be treated as immutable.
func Load(path string) (Settings, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse settings file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("settings validation failed: %w", err)
	}

	return cfg, nil
}
