package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jrsteele09/hr-console/auth"
	"github.com/jrsteele09/hr-console/backend"
	"github.com/jrsteele09/hr-console/dashboard"
	"github.com/jrsteele09/hr-console/guard"
	"github.com/jrsteele09/hr-console/internal/config"
	"github.com/jrsteele09/hr-console/tokenstore"
	"github.com/jrsteele09/hr-console/users"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// errNotLoggedIn is what every protected command reports without a session.
var errNotLoggedIn = errors.New("not logged in, run `hrconsole login`")

// app is the session core of one CLI invocation, persisted in the
// session file between invocations.
type app struct {
	config    config.Config
	store     *tokenstore.FileStore
	context   *auth.SessionContext
	gateway   *auth.Gateway
	resolver  *auth.Resolver
	dashboard *dashboard.Client
}

func newApp(configPath string) (*app, error) {
	c, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	api := backend.NewClient(c.GetBackendURL(), backend.WithTimeout(c.GetRequestTimeout()))
	store := tokenstore.NewFileStore(c.GetSessionFile())
	sc := auth.NewSessionContext(store, users.AllowListFromStrings(c.GetAllowedRoles()))

	gw, err := auth.NewGateway(api, sc, auth.WithRefreshLeeway(c.GetRefreshLeeway()))
	if err != nil {
		return nil, err
	}
	resolver, err := auth.NewResolver(sc, auth.BackendProfiles{Client: api}, auth.WithProfileTimeout(c.GetRequestTimeout()))
	if err != nil {
		return nil, err
	}

	return &app{
		config:    c,
		store:     store,
		context:   sc,
		gateway:   gw,
		resolver:  resolver,
		dashboard: dashboard.NewClient(api, sc),
	}, nil
}

// requireSession resolves the stored session and lets the command run only
// when the view guard would render it.
func (a *app) requireSession(ctx context.Context) error {
	res, err := a.context.Init(ctx, a.resolver)
	if err != nil {
		return err
	}
	if res.Outcome == auth.ResolvedStale {
		log.Warn().Err(res.RefreshErr).Msg("Backend unreachable, using the cached profile")
	}

	redirected := false
	g := guard.NewViewGuard(guard.NavigatorFunc(func(string) { redirected = true }))
	if _, decision := g.Evaluate(a.context.Snapshot()); decision != guard.Render || redirected {
		return errNotLoggedIn
	}

	if err := a.gateway.EnsureFresh(ctx); err != nil {
		return fmt.Errorf("%w (%v)", errNotLoggedIn, err)
	}
	return nil
}

// appFrom builds the app for cmd from the root --config flag.
func appFrom(cmd *cobra.Command) (*app, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return newApp(path)
}
