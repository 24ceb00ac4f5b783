package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/jrsteele09/hr-console/backend"
	"github.com/jrsteele09/hr-console/dashboard"
	apperrors "github.com/jrsteele09/hr-console/internal/errors"
	"github.com/jrsteele09/hr-console/sessions"
	"github.com/jrsteele09/hr-console/users"
	"github.com/rs/zerolog/log"
)

// DashboardOverview is the body of GET /dashboard.
type DashboardOverview struct {
	Summary          dashboard.DailySummary `json:"summary"`
	ProductivityRate int                    `json:"productivity_rate"`
	PendingApprovals int                    `json:"pending_approvals"`
}

// EmployeesView is the body of GET /dashboard/employees.
type EmployeesView struct {
	Active  []users.User `json:"active"`
	Pending []users.User `json:"pending"`
}

// AbsencesView is the body of GET /dashboard/absences.
type AbsencesView struct {
	Data  []dashboard.Absence    `json:"data"`
	Stats dashboard.AbsenceStats `json:"stats"`
}

// ProfileView is the signed-in user as the console reports it.
type ProfileView struct {
	User          *users.User `json:"user"`
	Authenticated bool        `json:"authenticated"`
}

func profileView(st sessions.State) ProfileView {
	return ProfileView{User: st.User, Authenticated: st.Authenticated}
}

// IndexHandler sends the visitor to the dashboard; the route guard takes
// over from there.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != RouteIndex {
			writeJSONError(w, http.StatusNotFound, "Not found")
			return
		}
		redirectSuccess(w, r, RouteDashboard)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"clients": s.sessions.Len(),
		})
	}
}

// DashboardHandler returns the day's summary, its productivity rate and the
// number of accounts waiting for approval.
func (s *Server) DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry := clientFromContext(r.Context())
		date := dateParam(r)

		summary, _, err := entry.Dashboard.Day(r.Context(), date)
		if err != nil {
			writeBackendError(w, err)
			return
		}

		overview := DashboardOverview{
			Summary:          summary,
			ProductivityRate: summary.Rate(),
		}
		// the pending count is informational, a failure only hides it
		if all, err := entry.Dashboard.AllUsers(r.Context()); err != nil {
			log.Warn().Err(err).Msg("Failed to list users for pending approvals")
		} else {
			_, pending := dashboard.SplitPendingApproval(all)
			overview.PendingApprovals = len(pending)
		}

		writeJSON(w, http.StatusOK, overview)
	}
}

func (s *Server) AttendanceListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry := clientFromContext(r.Context())
		q := r.URL.Query()

		checkins, err := entry.Dashboard.ViewCheckins(r.Context(), dateParam(r))
		if err != nil {
			writeBackendError(w, err)
			return
		}

		filter := dashboard.CheckinFilter{
			Search:   q.Get("search"),
			Status:   q.Get("status"),
			Location: q.Get("location"),
		}
		page := dashboard.Paginate(filter.Apply(checkins), queryInt(r, "page"), queryInt(r, "page_size"))
		writeJSON(w, http.StatusOK, page)
	}
}

func (s *Server) AttendanceCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry := clientFromContext(r.Context())

		var form dashboard.CheckinForm
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			writeJSONError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		checkin, err := entry.Dashboard.CreateCheckin(r.Context(), form)
		if err != nil {
			writeBackendError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, checkin)
	}
}

func (s *Server) AttendanceUpdateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry := clientFromContext(r.Context())

		id, err := strconv.Atoi(r.PathValue("id"))
		if err != nil || id <= 0 {
			writeJSONError(w, http.StatusBadRequest, "Invalid check-in id")
			return
		}

		var form dashboard.CheckinForm
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			writeJSONError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		checkin, err := entry.Dashboard.UpdateCheckin(r.Context(), id, form)
		if err != nil {
			writeBackendError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, checkin)
	}
}

// AttendanceExportHandler streams the backend CSV to the browser unchanged.
func (s *Server) AttendanceExportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry := clientFromContext(r.Context())
		q := r.URL.Query()

		body, contentType, err := entry.Dashboard.ExportCheckins(r.Context(), dashboard.ExportQuery{
			StartDate: q.Get("startDate"),
			EndDate:   q.Get("endDate"),
			UserID:    queryInt(r, "userId"),
		})
		if err != nil {
			writeBackendError(w, err)
			return
		}
		defer body.Close()

		if contentType == "" {
			contentType = "text/csv"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", `attachment; filename="checkins.csv"`)
		if _, err := io.Copy(w, body); err != nil {
			log.Err(err).Msg("Check-in export interrupted")
		}
	}
}

func (s *Server) EmployeesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry := clientFromContext(r.Context())

		var (
			list []users.User
			err  error
		)
		if page := queryInt(r, "page"); page > 0 {
			var p dashboard.UsersPage
			p, err = entry.Dashboard.ListUsers(r.Context(), page, queryInt(r, "page_size"))
			list = p.Data
		} else {
			list, err = entry.Dashboard.AllUsers(r.Context())
		}
		if err != nil {
			writeBackendError(w, err)
			return
		}
		active, pending := dashboard.SplitPendingApproval(list)
		writeJSON(w, http.StatusOK, EmployeesView{Active: nonNil(active), Pending: nonNil(pending)})
	}
}

func (s *Server) AnalyticsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry := clientFromContext(r.Context())

		points, err := entry.Dashboard.MonthlyAnalytics(r.Context(), queryInt(r, "page"), queryInt(r, "page_size"))
		if err != nil {
			writeBackendError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, dashboard.MonthlyAnalytics{Data: nonNil(points)})
	}
}

func (s *Server) AuditLogsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry := clientFromContext(r.Context())
		q := r.URL.Query()

		page, err := entry.Dashboard.AuditLogs(r.Context(), dashboard.AuditLogQuery{
			UserEmail:  q.Get("user_email"),
			Action:     q.Get("action"),
			EntityType: q.Get("entity_type"),
			EntityID:   queryInt(r, "entity_id"),
			Date:       q.Get("date"),
			Page:       queryInt(r, "page"),
			PageSize:   queryInt(r, "page_size"),
		})
		if err != nil {
			writeBackendError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func (s *Server) HeatmapHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry := clientFromContext(r.Context())

		cells, err := entry.Dashboard.AnalyticsHeatmap(r.Context(), analyticsQuery(r))
		if err != nil {
			writeBackendError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": nonNil(cells)})
	}
}

func (s *Server) OvertimeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry := clientFromContext(r.Context())

		entries, err := entry.Dashboard.AnalyticsOvertime(r.Context(), analyticsQuery(r))
		if err != nil {
			writeBackendError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": nonNil(entries)})
	}
}

func (s *Server) PredictionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry := clientFromContext(r.Context())
		q := r.URL.Query()

		p, err := entry.Dashboard.AnalyticsPrediction(r.Context(), dashboard.PredictionQuery{Type: q.Get("type"), Period: q.Get("period")})
		if err != nil {
			writeBackendError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// AbsencesHandler lists the absences in range along with their breakdown.
func (s *Server) AbsencesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry := clientFromContext(r.Context())
		q := r.URL.Query()

		absences, err := entry.Dashboard.Absences(r.Context(), dashboard.AbsenceQuery{
			StartDate: q.Get("startDate"),
			EndDate:   q.Get("endDate"),
		})
		if err != nil {
			writeBackendError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, AbsencesView{Data: nonNil(absences), Stats: dashboard.SummarizeAbsences(absences)})
	}
}

// ProfileHandler returns the user held by the client's session.
func (s *Server) ProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry := clientFromContext(r.Context())
		writeJSON(w, http.StatusOK, profileView(entry.Context.Snapshot()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("Failed to encode response")
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeBackendError maps a failed backend call onto the console's response.
func writeBackendError(w http.ResponseWriter, err error) {
	var (
		httpErr *backend.HTTPError
		netErr  *backend.NetworkError
	)
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, apperrors.ErrNoSession):
		writeJSONError(w, http.StatusUnauthorized, "Not logged in")
	case errors.As(err, &httpErr):
		writeJSONError(w, httpErr.Status, httpErr.Message)
	case errors.As(err, &netErr):
		writeJSONError(w, http.StatusBadGateway, netErr.Error())
	default:
		log.Err(err).Msg("Backend call failed")
		writeJSONError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func dateParam(r *http.Request) string {
	if d := r.URL.Query().Get("date"); d != "" {
		return d
	}
	return time.Now().Format(time.DateOnly)
}

func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}

func analyticsQuery(r *http.Request) dashboard.AnalyticsQuery {
	q := r.URL.Query()
	return dashboard.AnalyticsQuery{
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		UserID:    queryInt(r, "user_id"),
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
