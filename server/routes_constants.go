package server

import "github.com/jrsteele09/hr-console/auth"

// Route path constants
// All console routes are defined here to ensure consistency and prevent typos
const (
	RouteIndex = "/"

	// Auth Routes - Login & Logout
	RouteLogin      = auth.LoginRoute
	RouteAuthLogin  = "/auth/login"
	RouteAuthLogout = "/auth/logout"

	// Console views
	RouteDashboard        = auth.DashboardRoute
	RouteAttendance       = "/dashboard/attendance"
	RouteAttendanceItem   = "/dashboard/attendance/{id}"
	RouteAttendanceExport = "/dashboard/attendance/export"
	RouteEmployees        = "/dashboard/employees"
	RouteAnalytics        = "/dashboard/analytics"
	RouteHeatmap          = "/dashboard/analytics/heatmap"
	RouteOvertime         = "/dashboard/analytics/overtime"
	RoutePrediction       = "/dashboard/analytics/prediction"
	RouteAbsences         = "/dashboard/absences"
	RouteAuditLogs        = "/dashboard/audit-logs"
	RouteProfile          = "/profile"

	// Operational
	RouteMetrics = "/metrics"
	RouteHealth  = "/healthz"
)

const (
	contentTypeJSON = "application/json"
	contentTypeHTML = "text/html; charset=utf-8"
)
