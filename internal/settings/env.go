package settings

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultEnvPrefix is prepended to upper-cased keys, e.g. CDN_LOCAL_PATH.
const DefaultEnvPrefix = "CDN_LOCAL_"

// Env reads settings from environment variables.
type Env struct {
	Prefix string
}

func (e Env) Lookup(key string) (string, bool) {
	prefix := e.Prefix
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	return os.LookupEnv(prefix + strings.ToUpper(key))
}

// LoadDotEnv loads the given .env files (".env" when none are named) into
// the process environment without overriding variables already set.
// Missing files are not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}
