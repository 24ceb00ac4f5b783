package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteIndex, ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))

	// LOGIN
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginPageUIHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS "+RouteAuthLogin, ChainMiddleware(preflightHandler, s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	// Console views (require a resolved session)
	s.RegisterRouteHandler("GET "+RouteDashboard, ChainMiddleware(s.DashboardHandler(), s.ProtectedMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAttendance, ChainMiddleware(s.AttendanceListHandler(), s.ProtectedMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAttendance, ChainMiddleware(s.AttendanceCreateHandler(), s.ProtectedMiddleware()...))
	s.RegisterRouteHandler("PUT "+RouteAttendanceItem, ChainMiddleware(s.AttendanceUpdateHandler(), s.ProtectedMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAttendanceExport, ChainMiddleware(s.AttendanceExportHandler(), s.ProtectedMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteEmployees, ChainMiddleware(s.EmployeesHandler(), s.ProtectedMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAnalytics, ChainMiddleware(s.AnalyticsHandler(), s.ProtectedMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteHeatmap, ChainMiddleware(s.HeatmapHandler(), s.ProtectedMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteOvertime, ChainMiddleware(s.OvertimeHandler(), s.ProtectedMiddleware()...))
	s.RegisterRouteHandler("GET "+RoutePrediction, ChainMiddleware(s.PredictionHandler(), s.ProtectedMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAbsences, ChainMiddleware(s.AbsencesHandler(), s.ProtectedMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuditLogs, ChainMiddleware(s.AuditLogsHandler(), s.ProtectedMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteProfile, ChainMiddleware(s.ProfileHandler(), s.ProtectedMiddleware()...))

	// Operational
	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.Handler())
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))
}

// preflightHandler only runs for preflights without an Origin header.
func preflightHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
