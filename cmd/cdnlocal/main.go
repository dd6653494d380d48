package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"cdnlocal/internal/core"
	"cdnlocal/internal/settings"
	"cdnlocal/pkg/auth"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func envOr(key string, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// loadSettings builds the settings provider. Environment variables win
// over the SQLite snapshot so deployments can override single keys.
func loadSettings(ctx context.Context, dbPath string, component string, withDefaults bool) (settings.Provider, error) {
	chain := settings.Chain{settings.Env{}}

	if dbPath != "" {
		store, err := settings.OpenSQLite(ctx, dbPath, component)
		if err != nil {
			return nil, err
		}
		defer store.Close()

		snapshot, err := store.Load(ctx)
		if err != nil {
			return nil, err
		}
		slog.Debug("Loaded settings snapshot", "db", dbPath, "component", component, "keys", len(snapshot))
		chain = append(chain, snapshot)
	}

	if withDefaults {
		return settings.WithDefaults(chain), nil
	}
	return chain, nil
}

func Run(ctx context.Context) error {

	// Flag defaults below read the environment, so .env goes first.
	if err := settings.LoadDotEnv(); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	listen := flag.String("listen", ":9100", "HTTP listen address")
	listenTLS := flag.String("listen-tls", ":9443", "HTTPS listen address")
	certFile := flag.String("tls-cert", "", "TLS certificate file; HTTPS is disabled without it")
	keyFile := flag.String("tls-key", "", "TLS key file")
	settingsDB := flag.String("settings-db", "", "SQLite settings database; environment only when empty")
	component := flag.String("settings-component", settings.DefaultComponent, "settings component name in the database")
	defaults := flag.Bool("defaults", false, "fall back to built-in defaults for missing settings")
	secret := flag.String("secret", envOr("CDN_LOCAL_SECRET", ""), "server secret for expiring URLs")
	siteURL := flag.String("site-url", envOr("CDN_LOCAL_SITE_URL", ""), "site base URL used to qualify relative URLs")
	accessKey := flag.String("access-key", envOr("CDN_LOCAL_ACCESS_KEY", auth.DefaultAccessKeyID), "admin API basic auth user")
	secretKey := flag.String("secret-key", envOr("CDN_LOCAL_SECRET_KEY", auth.DefaultSecretAccessKey), "admin API basic auth password")
	debug := flag.Bool("debug", false, "enable debug logging")

	flag.Parse()

	level := log.InfoLevel
	if *debug {
		level = log.DebugLevel
	}

	handler := log.NewWithOptions(os.Stdout, log.Options{
		Level:           level,
		TimeFormat:      time.RFC3339,
		ReportTimestamp: true,
		TimeFunction:    log.NowUTC,
		ReportCaller:    true,
	})

	slog.SetDefault(slog.New(handler))

	provider, err := loadSettings(ctx, *settingsDB, *component, *defaults)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	server, err := core.NewServer(core.NewConfig(
		core.WithSettings(provider),
		core.WithSecret(*secret),
		core.WithSiteURL(*siteURL),
		core.WithAuthEngine(auth.NewCompoundAuthEngine(
			auth.NewJWTAuthEngine(*secret),
			&auth.BasicAuthEngine{
				AccessKeyID:     *accessKey,
				SecretAccessKey: *secretKey,
				Role:            auth.RoleSuperuser,
			},
		)),
	))
	if err != nil {
		return fmt.Errorf("failed to create cdn server: %w", err)
	}

	base := server.Driver().Settings().Path
	if abs, err := filepath.Abs(base); err == nil {
		base = abs
	}
	slog.Info("Serving local CDN storage", "path", base)

	router := server.Handler()

	httpServer := &http.Server{
		Addr:              *listen,
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
	}

	httpsServer := &http.Server{
		TLSConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		Addr:              *listenTLS,
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(httpServer.Shutdown(shutdownCtx), httpsServer.Shutdown(shutdownCtx))
	})

	eg.Go(func() error {
		if *certFile == "" || *keyFile == "" {
			slog.Debug("Skipping HTTPS service because no certificate was provided")
			return nil
		}

		slog.Info("Starting HTTPS server", "addr", *listenTLS)
		err := httpsServer.ListenAndServeTLS(*certFile, *keyFile)
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	eg.Go(func() error {
		slog.Info("Starting HTTP server", "addr", *listen)
		err := httpServer.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	return eg.Wait()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx); err != nil {
		slog.Error("cdnlocal exited with error", "error", err)
		os.Exit(1)
	}
}
