package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/hr-console/backend"
	"github.com/jrsteele09/hr-console/internal/config"
	"github.com/jrsteele09/hr-console/server"
	"github.com/jrsteele09/hr-console/server/clientsession"
	"github.com/jrsteele09/hr-console/tokenstore"
	"github.com/jrsteele09/hr-console/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const sweepInterval = 10 * time.Minute

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load(config.GetEnv("HRCONSOLE_CONFIG", "hrconsole.yaml"))
	if err != nil {
		return err
	}
	if c.GetEnv() != "DEV" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, closeStore, err := tokenStoreProvider(ctx, c)
	if err != nil {
		return err
	}
	defer closeStore()

	api := backend.NewClient(c.GetBackendURL(), backend.WithTimeout(c.GetRequestTimeout()))
	registry, err := clientsession.NewRegistry(api, provider, users.AllowListFromStrings(c.GetAllowedRoles()),
		clientsession.WithRefreshLeeway(c.GetRefreshLeeway()),
	)
	if err != nil {
		return err
	}
	go registry.Run(ctx, sweepInterval)

	s, err := server.New(c, api, registry)
	if err != nil {
		return err
	}

	displayAppname(c.GetAppName())
	httpServer := &http.Server{Addr: c.GetPort(), Handler: s, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- listenAndServe(httpServer, c)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	return shutdown(httpServer)
}

// tokenStoreProvider builds the per-client session store named by the
// configuration. The returned func releases it.
func tokenStoreProvider(ctx context.Context, c config.Config) (tokenstore.Provider, func(), error) {
	switch c.GetTokenStore() {
	case config.TokenStoreRedis:
		client, err := tokenstore.Connect(ctx, c.GetRedisURL())
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("redis", c.GetRedisURL()).Msg("Sessions stored in Redis")
		return tokenstore.NewRedisProvider(client, c.GetSessionTTL()), func() { _ = client.Close() }, nil
	case config.TokenStoreFile:
		dir := filepath.Join(filepath.Dir(c.GetSessionFile()), "clients")
		log.Info().Str("dir", dir).Msg("Sessions stored on disk")
		return tokenstore.NewFileProvider(dir), func() {}, nil
	case config.TokenStoreMemory:
		return tokenstore.NewInMemoryProvider(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown token store %q", c.GetTokenStore())
	}
}

func listenAndServe(server *http.Server, c config.Config) error {
	log.Info().Str("addr", server.Addr).Str("backend", c.GetBackendURL()).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
