package core

import (
	"context"
	"log/slog"

	"cdnlocal/internal/settings"
	"cdnlocal/internal/storage"
	"cdnlocal/internal/urls"
	"cdnlocal/pkg/auth"
	storageapi "cdnlocal/pkg/storage"
)

// Driver is the local filesystem CDN driver. Storage operations come from
// the embedded LocalFileStorage and URL generation from the embedded
// Engine; the two only share the resolved settings.
type Driver struct {
	*storage.LocalFileStorage
	*urls.Engine

	settings settings.Settings
	secure   storageapi.SecureDetector
}

var (
	_ storageapi.StorageEngine = (*Driver)(nil)
	_ storageapi.URLGenerator  = (*Driver)(nil)
)

// New resolves the settings and wires the collaborators. Missing settings or
// a missing secret fail here rather than on first use.
func New(cfg Config) (*Driver, error) {
	resolved, err := settings.Resolve(cfg.Settings)
	if err != nil {
		return nil, err
	}

	if cfg.Secret == "" {
		return nil, &storageapi.Error{
			Kind:    storageapi.ConfigurationMissing,
			Message: "missing server secret for expiring URLs",
		}
	}

	if cfg.Secure == nil {
		cfg.Secure = RequestSecurity{}
	}
	if cfg.Elevation == nil {
		cfg.Elevation = auth.ContextElevation{}
	}
	if cfg.Qualifier == nil && cfg.SiteURL != "" {
		cfg.Qualifier = urls.SiteQualifier{BaseURL: cfg.SiteURL}
	}

	engine := urls.NewEngine(urls.Config{
		ServeURI:         resolved.ServeURI,
		ServeSecureURI:   resolved.ServeSecureURI,
		ProcessURI:       resolved.ProcessURI,
		ProcessSecureURI: resolved.ProcessSecureURI,
		RawPrefix:        cfg.RawPrefix,
		Secret:           cfg.Secret,
		Secure:           cfg.Secure,
		Qualifier:        cfg.Qualifier,
		Encoder:          cfg.Encoder,
		Clock:            cfg.Clock,
	})

	slog.Debug("Local CDN driver ready",
		"path", resolved.Path,
		"uri_serve", resolved.ServeURI,
		"uri_process", resolved.ProcessURI,
	)

	return &Driver{
		LocalFileStorage: storage.NewLocalFileStorage(resolved.Path, cfg.Elevation),
		Engine:           engine,
		settings:         resolved,
		secure:           cfg.Secure,
	}, nil
}

// Settings returns the resolved settings.
func (d *Driver) Settings() settings.Settings {
	return d.settings
}

// IsSecure reports whether URLs rendered for ctx use the secure bases.
func (d *Driver) IsSecure(ctx context.Context) bool {
	return d.secure.IsSecure(ctx)
}
