// Package devbackend is an in-memory stand-in for the attendance backend.
// It serves the same auth, user and dashboard endpoints the console talks
// to, so the console can be run and tested without the real service.
package devbackend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/hr-console/backend"
	"github.com/jrsteele09/hr-console/dashboard"
	"github.com/jrsteele09/hr-console/sessions"
	"github.com/jrsteele09/hr-console/token"
	"github.com/jrsteele09/hr-console/users"
	"github.com/rs/zerolog/log"
)

const contentTypeJSON = "application/json"

// DefaultLateAfter is the latest on-time check-in, HH:MM.
const DefaultLateAfter = "09:15"

type contextKey string

const contextKeyUser contextKey = "user"

type Backend struct {
	mux       *http.ServeMux
	routes    []string
	users     users.UserRepo
	tokens    *token.Manager
	records   *Records
	shape     sessions.Shape
	lateAfter string
	nowTime   func() time.Time
}

// Option defines a function type to modify the Backend instance.
type Option func(*Backend)

// WithResponseShape selects which generation of login body /auth/login
// emits. The default is the current OAuth style body.
func WithResponseShape(shape sessions.Shape) Option {
	return func(b *Backend) {
		b.shape = shape
	}
}

// WithRecords shares attendance records, for example pre-seeded ones.
func WithRecords(r *Records) Option {
	return func(b *Backend) {
		b.records = r
	}
}

// WithLateAfter sets the latest on-time check-in time (HH:MM).
func WithLateAfter(hhmm string) Option {
	return func(b *Backend) {
		b.lateAfter = hhmm
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(b *Backend) {
		b.nowTime = nowFunc
	}
}

func New(userRepo users.UserRepo, tokens *token.Manager, options ...Option) (*Backend, error) {
	if userRepo == nil {
		return nil, errors.New("[devbackend.New] user repo is required")
	}
	if tokens == nil {
		return nil, errors.New("[devbackend.New] token manager is required")
	}

	b := &Backend{
		mux:       http.NewServeMux(),
		users:     userRepo,
		tokens:    tokens,
		shape:     sessions.ShapeV3OAuth,
		lateAfter: DefaultLateAfter,
		nowTime:   time.Now,
	}
	for _, opt := range options {
		opt(b)
	}
	if b.records == nil {
		b.records = NewRecords(b.nowTime)
	}

	b.initRoutes()
	return b, nil
}

func (b *Backend) Records() *Records {
	return b.records
}

// Routes lists the registered patterns.
func (b *Backend) Routes() []string {
	return append([]string(nil), b.routes...)
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mux.ServeHTTP(w, r)
}

func (b *Backend) initRoutes() {
	staff := b.RequireBearer(users.RoleAdmin, users.RoleHR)
	anyone := b.RequireBearer()

	b.handle("POST "+backend.LoginPath, b.Login())
	b.handle("POST "+backend.LogoutPath, b.Logout())
	b.handle("POST "+backend.RefreshPath, b.Refresh())

	b.handle("GET "+backend.CurrentUserPath, anyone(b.CurrentUser()))
	b.handle("GET "+dashboard.UsersPath+"{$}", staff(b.ListUsers()))

	b.handle("GET "+dashboard.CheckinsViewPath, staff(b.ViewCheckins()))
	b.handle("POST "+dashboard.CheckinsPath, staff(b.CreateCheckin()))
	b.handle("PUT "+dashboard.CheckinsPath+"/{id}", staff(b.UpdateCheckin()))
	b.handle("GET "+dashboard.CheckinsExportPath, staff(b.ExportCheckins()))
	b.handle("GET "+dashboard.DailySummaryPath, staff(b.DailySummary()))
	b.handle("GET "+dashboard.MonthlyAnalyticsPath, staff(b.MonthlyAnalytics()))
	b.handle("GET "+dashboard.HeatmapPath, staff(b.AnalyticsHeatmap()))
	b.handle("GET "+dashboard.OvertimePath, staff(b.AnalyticsOvertime()))
	b.handle("GET "+dashboard.PredictionPath, staff(b.AnalyticsPrediction()))
	b.handle("GET "+dashboard.AbsencesPath, staff(b.Absences()))
	b.handle("GET "+dashboard.AuditLogsPath, staff(b.AuditLogs()))
}

func (b *Backend) handle(pattern string, h http.HandlerFunc) {
	b.routes = append(b.routes, pattern)
	b.mux.HandleFunc(pattern, b.LoggingMiddleware(h))
}

func (b *Backend) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Str("request_id", r.Header.Get(backend.RequestIDHeader)).
			Msg("devbackend request")
	}
}

// RequireBearer verifies the access token and loads its user. With roles
// given, other roles get 403.
func (b *Backend) RequireBearer(roles ...users.RoleType) func(http.HandlerFunc) http.HandlerFunc {
	allowed := users.NewRoleAllowList(roles...)
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}

			claims, err := b.tokens.Verify(raw)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			user, err := b.users.GetByID(claims.Subject)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "User no longer exists")
				return
			}
			if len(roles) > 0 && !allowed.AllowsUser(user) {
				writeError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyUser, user)
			next(w, r.WithContext(ctx))
		}
	}
}

func userFromContext(ctx context.Context) *users.User {
	u, _ := ctx.Value(contextKeyUser).(*users.User)
	return u
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("Failed to encode response")
	}
}

// writeError uses the {"error": ...} body the console reads messages from.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// ParseShape reads a response shape name such as "v2" or "v3-oauth".
func ParseShape(name string) (sessions.Shape, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "v3", sessions.ShapeV3OAuth.String():
		return sessions.ShapeV3OAuth, nil
	case "v2", sessions.ShapeV2Token.String():
		return sessions.ShapeV2Token, nil
	case "v1", sessions.ShapeV1Flat.String():
		return sessions.ShapeV1Flat, nil
	default:
		return sessions.ShapeUnknown, fmt.Errorf("unknown response shape %q", name)
	}
}
