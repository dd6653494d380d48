package core

import (
	"time"

	"cdnlocal/internal/settings"
	"cdnlocal/pkg/auth"
	storageapi "cdnlocal/pkg/storage"
)

type Config struct {
	// Settings supplies path and the four URI bases.
	Settings settings.Provider
	// Secret keys expiring-URL tokens. Required.
	Secret string
	// SiteURL, when set and no Qualifier is given, qualifies relative URLs.
	SiteURL   string
	RawPrefix string

	Secure        storageapi.SecureDetector
	Qualifier     storageapi.URLQualifier
	Encoder       storageapi.TokenEncoder
	Elevation     storageapi.Elevation
	Clock         func() time.Time
	Authenticator auth.AuthEngine
}

type ConfigOption func(*Config)

func WithSettings(provider settings.Provider) ConfigOption {
	return func(cfg *Config) {
		cfg.Settings = provider
	}
}

func WithSecret(secret string) ConfigOption {
	return func(cfg *Config) {
		cfg.Secret = secret
	}
}

func WithSiteURL(siteURL string) ConfigOption {
	return func(cfg *Config) {
		cfg.SiteURL = siteURL
	}
}

func WithRawPrefix(prefix string) ConfigOption {
	return func(cfg *Config) {
		cfg.RawPrefix = prefix
	}
}

func WithSecureDetector(detector storageapi.SecureDetector) ConfigOption {
	return func(cfg *Config) {
		cfg.Secure = detector
	}
}

func WithQualifier(qualifier storageapi.URLQualifier) ConfigOption {
	return func(cfg *Config) {
		cfg.Qualifier = qualifier
	}
}

func WithTokenEncoder(encoder storageapi.TokenEncoder) ConfigOption {
	return func(cfg *Config) {
		cfg.Encoder = encoder
	}
}

func WithElevation(elevation storageapi.Elevation) ConfigOption {
	return func(cfg *Config) {
		cfg.Elevation = elevation
	}
}

func WithClock(clock func() time.Time) ConfigOption {
	return func(cfg *Config) {
		cfg.Clock = clock
	}
}

func WithAuthEngine(authenticator auth.AuthEngine) ConfigOption {
	return func(cfg *Config) {
		cfg.Authenticator = authenticator
	}
}

func NewConfig(opts ...ConfigOption) Config {
	cfg := Config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
