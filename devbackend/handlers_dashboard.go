package devbackend

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/jrsteele09/hr-console/dashboard"
	"github.com/jrsteele09/hr-console/users"
	"github.com/rs/zerolog/log"
)

var exportHeader = []string{
	"checkin_id", "user_id", "user_name", "user_email", "date", "checkin_time",
	"checkout_time", "location_type", "location_detail", "late", "overtime", "notes",
}

func (b *Backend) ListUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := queryInt(r, "page", 1)
		pageSize := queryInt(r, "page_size", dashboard.DefaultPageSize)
		if page < 1 {
			page = 1
		}
		if pageSize < 1 {
			pageSize = dashboard.DefaultPageSize
		}

		list, err := b.users.List((page-1)*pageSize, pageSize)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Could not list users")
			return
		}
		out := dashboard.UsersPage{Data: make([]users.User, 0, len(list.Users)), Total: list.Total, Page: page, PageSize: pageSize}
		for _, u := range list.Users {
			out.Data = append(out.Data, *u)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (b *Backend) ViewCheckins() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")
		if date == "" {
			date = b.nowTime().Format(time.DateOnly)
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": b.records.CheckinsOn(date)})
	}
}

func (b *Backend) CreateCheckin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, ok := b.decodeForm(w, r)
		if !ok {
			return
		}
		owner, err := b.users.GetByID(users.ID(strconv.Itoa(form.UserID)))
		if err != nil {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}

		c := b.records.AddCheckin(b.applyForm(dashboard.Checkin{}, owner, form))
		actor := userFromContext(r.Context())
		b.records.Audit(actor.Email, ActionCreateCheckin, entityCheckin, c.CheckinID, map[string]any{
			"user_id": c.UserID,
			"date":    c.Date,
		})
		writeJSON(w, http.StatusCreated, c)
	}
}

func (b *Backend) UpdateCheckin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(r.PathValue("id"))
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid check-in id")
			return
		}
		form, ok := b.decodeForm(w, r)
		if !ok {
			return
		}
		owner, err := b.users.GetByID(users.ID(strconv.Itoa(form.UserID)))
		if err != nil {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}

		c, err := b.records.UpdateCheckin(id, func(c *dashboard.Checkin) {
			*c = b.applyForm(*c, owner, form)
		})
		if err != nil {
			writeError(w, http.StatusNotFound, "Check-in not found")
			return
		}

		actor := userFromContext(r.Context())
		b.records.Audit(actor.Email, ActionUpdateCheckin, entityCheckin, c.CheckinID, map[string]any{
			"time":          c.CheckinTime,
			"location_type": c.LocationType,
		})
		writeJSON(w, http.StatusOK, c)
	}
}

func (b *Backend) ExportCheckins() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		rows := b.records.Between(q.Get("startDate"), q.Get("endDate"), queryInt(r, "userId", 0))

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="checkins.csv"`)
		cw := csv.NewWriter(w)
		_ = cw.Write(exportHeader)
		for _, c := range rows {
			_ = cw.Write([]string{
				strconv.Itoa(c.CheckinID),
				strconv.Itoa(c.UserID),
				c.UserName,
				c.UserEmail,
				c.Date,
				c.CheckinTime,
				c.CheckoutTime,
				c.LocationType,
				c.LocationDetail,
				strconv.FormatBool(c.Late),
				strconv.FormatBool(c.Overtime),
				c.Notes,
			})
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			log.Err(err).Msg("Failed to write export")
			return
		}

		actor := userFromContext(r.Context())
		b.records.Audit(actor.Email, ActionExport, entityCheckin, 0, map[string]any{"rows": len(rows)})
	}
}

// DailySummary answers 404 for a day without check-ins.
func (b *Backend) DailySummary() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")
		if date == "" {
			date = b.nowTime().Format(time.DateOnly)
		}
		s, ok := b.records.DailySummary(date)
		if !ok {
			writeError(w, http.StatusNotFound, "No summary for "+date)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

func (b *Backend) MonthlyAnalytics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, dashboard.MonthlyAnalytics{Data: b.records.Monthly()})
	}
}

func (b *Backend) Absences() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := dashboard.AbsenceQuery{StartDate: r.URL.Query().Get("startDate"), EndDate: r.URL.Query().Get("endDate")}
		if err := q.Validate(); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": b.records.Absences(q.StartDate, q.EndDate)})
	}
}

func (b *Backend) AnalyticsHeatmap() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, ok := analyticsQuery(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": b.records.Heatmap(q.StartDate, q.EndDate, q.UserID)})
	}
}

func (b *Backend) AnalyticsOvertime() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, ok := analyticsQuery(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": b.records.Overtime(q.StartDate, q.EndDate, q.UserID)})
	}
}

func (b *Backend) AnalyticsPrediction() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := dashboard.PredictionQuery{Type: r.URL.Query().Get("type"), Period: r.URL.Query().Get("period")}
		if err := q.Validate(); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, b.records.Predict(q.Type, q.Period))
	}
}

func (b *Backend) AuditLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		writeJSON(w, http.StatusOK, b.records.AuditPage(dashboard.AuditLogQuery{
			UserEmail:  q.Get("user_email"),
			Action:     q.Get("action"),
			EntityType: q.Get("entity_type"),
			EntityID:   queryInt(r, "entity_id", 0),
			Date:       q.Get("date"),
			Page:       queryInt(r, "page", 1),
			PageSize:   queryInt(r, "page_size", dashboard.DefaultPageSize),
		}))
	}
}

func analyticsQuery(w http.ResponseWriter, r *http.Request) (dashboard.AnalyticsQuery, bool) {
	q := dashboard.AnalyticsQuery{
		StartDate: r.URL.Query().Get("start_date"),
		EndDate:   r.URL.Query().Get("end_date"),
		UserID:    queryInt(r, "user_id", 0),
	}
	if err := q.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return q, false
	}
	return q, true
}

func (b *Backend) decodeForm(w http.ResponseWriter, r *http.Request) (dashboard.CheckinForm, bool) {
	var form dashboard.CheckinForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return form, false
	}
	if err := form.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return form, false
	}
	return form, true
}

func (b *Backend) applyForm(c dashboard.Checkin, owner *users.User, form dashboard.CheckinForm) dashboard.Checkin {
	c.UserID = form.UserID
	c.UserName = owner.DisplayName()
	c.UserEmail = owner.Email
	c.Date = form.Date
	c.CheckinTime = form.Time
	c.LocationType = form.LocationType
	c.LocationDetail = form.LocationDetail
	c.GPSLat = form.GPSLat
	c.GPSLong = form.GPSLong
	c.Late = b.isLate(form.Time)
	c.Notes = form.Notes
	if form.LateReason != "" {
		c.Notes = form.LateReason
	}
	return c
}

// isLate compares clock times, so "9:20" is after "09:15".
func (b *Backend) isLate(hhmm string) bool {
	at, err := time.Parse("15:04", hhmm)
	if err != nil {
		return false
	}
	limit, err := time.Parse("15:04", b.lateAfter)
	if err != nil {
		return false
	}
	return at.After(limit)
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return v
}

func userNumber(u *users.User) int {
	n, _ := strconv.Atoi(u.ID.String())
	return n
}
