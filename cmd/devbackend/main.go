package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/hr-console/devbackend"
	"github.com/jrsteele09/hr-console/internal/config"
	"github.com/jrsteele09/hr-console/token"
	"github.com/jrsteele09/hr-console/token/jwt"
	refreshrepofake "github.com/jrsteele09/hr-console/token/refresh/repofake"
	fakeuserrepo "github.com/jrsteele09/hr-console/users/repofake"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Dev backend stopped")
	}
	log.Info().Msg("Dev backend stopped")
}

func run() error {
	port := config.GetEnv("DEVBACKEND_PORT", "8081")
	shape, err := devbackend.ParseShape(config.GetEnv("DEVBACKEND_SHAPE", "v3"))
	if err != nil {
		return err
	}
	accessMinutes, err := strconv.Atoi(config.GetEnv("DEVBACKEND_ACCESS_TOKEN_MINUTES", "15"))
	if err != nil {
		return fmt.Errorf("DEVBACKEND_ACCESS_TOKEN_MINUTES: %w", err)
	}

	userRepo := fakeuserrepo.NewFakeUserRepo()
	accounts, err := devbackend.SeedAccounts(userRepo, config.GetEnv("DEVBACKEND_PASSWORD", devbackend.DefaultPassword))
	if err != nil {
		return err
	}

	tokens, err := token.New(refreshrepofake.NewFakeRefreshTokenRepo(), userRepo,
		jwt.NewHMACSigner(config.GetEnv("DEVBACKEND_SECRET", "dev-only-secret")),
		token.WithTokenExpiry(time.Duration(accessMinutes)*time.Minute, 7*24*time.Hour),
	)
	if err != nil {
		return err
	}

	dev, err := devbackend.New(userRepo, tokens, devbackend.WithResponseShape(shape))
	if err != nil {
		return err
	}
	today := time.Now().Format(time.DateOnly)
	devbackend.SeedCheckins(dev.Records(), accounts, today)
	devbackend.SeedAbsences(dev.Records(), accounts, today)

	displayAppname("dev backend")
	for _, route := range dev.Routes() {
		log.Debug().Str("route", route).Msg("Registered")
	}
	for _, u := range accounts {
		log.Info().Str("email", u.Email).Str("role", string(u.Role)).Bool("pending", u.PendingApproval).Msg("Seeded account")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go cleanupRevokedTokens(ctx, tokens)

	server := &http.Server{Addr: ":" + port, Handler: dev, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Str("shape", shape.String()).Msg("Dev backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server.ListenAndServe: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func cleanupRevokedTokens(ctx context.Context, tokens *token.Manager) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tokens.CleanupRevokedTokens()
		}
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
