package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jrsteele09/hr-console/backend"
	"github.com/jrsteele09/hr-console/guard"
	"github.com/jrsteele09/hr-console/internal/config"
	"github.com/jrsteele09/hr-console/server/clientsession"
	"github.com/rs/zerolog/log"
)

// Server is the console's backend-for-frontend. It owns one session core per
// browser client and proxies the dashboard to the attendance backend.
type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	api      *backend.Client
	sessions *clientsession.Registry
	paths    guard.Paths
}

func New(config config.Config, api *backend.Client, sessions *clientsession.Registry) (*Server, error) {
	if config == nil {
		return nil, errors.New("[Server New] config is required")
	}
	if api == nil {
		return nil, errors.New("[Server New] backend client is required")
	}
	if sessions == nil {
		return nil, errors.New("[Server New] client session registry is required")
	}

	s := &Server{
		env:      config.GetEnv(),
		mux:      http.NewServeMux(),
		config:   config,
		api:      api,
		sessions: sessions,
		paths:    guard.DefaultPaths(),
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Routes lists the registered patterns.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		method, path, ok := strings.Cut(route, " ")
		if !ok {
			method, path = "", route
		}
		log.Debug().Msgf("[%-16s] %s", colourMethod(method), path)
	}
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
