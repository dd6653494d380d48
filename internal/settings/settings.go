// Package settings supplies the local driver's key/value configuration.
//
// Values come from a Provider; Resolve reads the required keys and reports
// every missing one at once.
package settings

import (
	"fmt"

	"github.com/fishy/errbatch"

	storageapi "cdnlocal/pkg/storage"
)

// Keys read by the local driver.
const (
	KeyPath             = "path"
	KeyURLServe         = "uri_serve"
	KeyURLServeSecure   = "uri_serve_secure"
	KeyURLProcess       = "uri_process"
	KeyURLProcessSecure = "uri_process_secure"
)

// RequiredKeys lists the keys Resolve insists on, in reporting order.
var RequiredKeys = []string{
	KeyPath,
	KeyURLServe,
	KeyURLServeSecure,
	KeyURLProcess,
	KeyURLProcessSecure,
}

// Provider looks up a single setting.
type Provider interface {
	Lookup(key string) (string, bool)
}

// Map is a literal in-memory Provider.
type Map map[string]string

func (m Map) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// Chain asks each provider in turn and returns the first non-empty hit, so
// a variable set to "" does not hide a later provider.
type Chain []Provider

func (c Chain) Lookup(key string) (string, bool) {
	for _, p := range c {
		if p == nil {
			continue
		}
		if v, ok := p.Lookup(key); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// Defaults are the values the settings form pre-fills. They are never
// applied implicitly; wrap a provider with WithDefaults to opt in.
var Defaults = Map{
	KeyPath:             "assets/uploads",
	KeyURLServe:         "cdn",
	KeyURLServeSecure:   "cdn",
	KeyURLProcess:       "cdn",
	KeyURLProcessSecure: "cdn",
}

// WithDefaults falls back to Defaults for keys p does not have.
func WithDefaults(p Provider) Provider {
	return Chain{p, Defaults}
}

// Settings is the resolved driver configuration.
type Settings struct {
	Path             string
	ServeURI         string
	ServeSecureURI   string
	ProcessURI       string
	ProcessSecureURI string
}

// Resolve reads every required key from p. Empty values count as missing.
// The returned error is a ConfigurationMissing *storage.Error.
func Resolve(p Provider) (Settings, error) {
	if p == nil {
		return Settings{}, &storageapi.Error{
			Kind:    storageapi.ConfigurationMissing,
			Message: "no settings provider configured",
		}
	}

	var batch errbatch.ErrBatch
	get := func(key string) string {
		v, ok := p.Lookup(key)
		if !ok || v == "" {
			batch.Add(fmt.Errorf("missing setting %q", key))
		}
		return v
	}

	s := Settings{
		Path:             get(KeyPath),
		ServeURI:         get(KeyURLServe),
		ServeSecureURI:   get(KeyURLServeSecure),
		ProcessURI:       get(KeyURLProcess),
		ProcessSecureURI: get(KeyURLProcessSecure),
	}

	if err := batch.Compile(); err != nil {
		return Settings{}, &storageapi.Error{
			Kind:    storageapi.ConfigurationMissing,
			Message: "invalid local driver configuration",
			Err:     err,
		}
	}

	return s, nil
}
