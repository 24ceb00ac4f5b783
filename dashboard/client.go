package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jrsteele09/hr-console/backend"
	"github.com/jrsteele09/hr-console/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Backend paths
const (
	CheckinsViewPath     = "/api/dashboard/checkins/view"
	CheckinsPath         = "/api/dashboard/checkins"
	CheckinsExportPath   = "/api/dashboard/checkins/export"
	DailySummaryPath     = "/api/dashboard/daily-summary"
	MonthlyAnalyticsPath = "/api/dashboard/analytics/monthly"
	HeatmapPath          = "/api/dashboard/analytics/heatmap"
	OvertimePath         = "/api/dashboard/analytics/overtime"
	PredictionPath       = "/api/dashboard/analytics/prediction"
	AbsencesPath         = "/api/dashboard/absences"
	AuditLogsPath        = "/api/dashboard/audit-logs"
	UsersPath            = "/api/users/"
)

// Client calls the dashboard endpoints with the session's Bearer token.
type Client struct {
	api *backend.Client
}

func NewClient(api *backend.Client, ts oauth2.TokenSource) *Client {
	return &Client{api: api.Authorized(ts)}
}

// ViewCheckins returns the check-ins of one day. Both a bare list and
// {"data": [...]} are accepted.
func (c *Client) ViewCheckins(ctx context.Context, date string) ([]Checkin, error) {
	var raw json.RawMessage
	if err := c.api.Do(ctx, http.MethodGet, CheckinsViewPath, url.Values{"date": {date}}, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[Checkin](raw)
}

func (c *Client) CreateCheckin(ctx context.Context, form CheckinForm) (Checkin, error) {
	if err := form.Validate(); err != nil {
		return Checkin{}, err
	}
	var out Checkin
	if err := c.api.Do(ctx, http.MethodPost, CheckinsPath, nil, form, &out); err != nil {
		return Checkin{}, err
	}
	return out, nil
}

func (c *Client) UpdateCheckin(ctx context.Context, id int, form CheckinForm) (Checkin, error) {
	if err := form.Validate(); err != nil {
		return Checkin{}, err
	}
	var out Checkin
	path := CheckinsPath + "/" + strconv.Itoa(id)
	if err := c.api.Do(ctx, http.MethodPut, path, nil, form, &out); err != nil {
		return Checkin{}, err
	}
	return out, nil
}

// ExportCheckins streams the backend export unchanged. The caller closes the body.
func (c *Client) ExportCheckins(ctx context.Context, q ExportQuery) (io.ReadCloser, string, error) {
	v := url.Values{}
	setIfNotEmpty(v, "startDate", q.StartDate)
	setIfNotEmpty(v, "endDate", q.EndDate)
	setIfPositive(v, "userId", q.UserID)
	return c.api.Stream(ctx, CheckinsExportPath, v)
}

func (c *Client) DailySummary(ctx context.Context, date string) (APIDailySummary, error) {
	var out APIDailySummary
	if err := c.api.Do(ctx, http.MethodGet, DailySummaryPath, url.Values{"date": {date}}, nil, &out); err != nil {
		return APIDailySummary{}, err
	}
	return out, nil
}

// Day loads the check-ins of a day and its summary. When the summary
// endpoint fails the summary is computed from the check-ins.
func (c *Client) Day(ctx context.Context, date string) (DailySummary, []Checkin, error) {
	checkins, err := c.ViewCheckins(ctx, date)
	if err != nil {
		return DailySummary{}, nil, err
	}

	api, err := c.DailySummary(ctx, date)
	if err != nil {
		log.Warn().Err(err).Str("date", date).Msg("Daily summary unavailable, computing from check-ins")
		return SummarizeCheckins(date, checkins), checkins, nil
	}
	return FromAPISummary(api, checkins), checkins, nil
}

func (c *Client) MonthlyAnalytics(ctx context.Context, page, pageSize int) ([]MonthlyPoint, error) {
	v := url.Values{}
	setIfPositive(v, "page", page)
	setIfPositive(v, "page_size", pageSize)

	var raw json.RawMessage
	if err := c.api.Do(ctx, http.MethodGet, MonthlyAnalyticsPath, v, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[MonthlyPoint](raw)
}

// Absences lists the absences overlapping the queried dates.
func (c *Client) Absences(ctx context.Context, q AbsenceQuery) ([]Absence, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	v := url.Values{}
	setIfNotEmpty(v, "startDate", q.StartDate)
	setIfNotEmpty(v, "endDate", q.EndDate)

	var raw json.RawMessage
	if err := c.api.Do(ctx, http.MethodGet, AbsencesPath, v, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[Absence](raw)
}

func (c *Client) AnalyticsHeatmap(ctx context.Context, q AnalyticsQuery) ([]HeatmapCell, error) {
	var raw json.RawMessage
	if err := c.analytics(ctx, HeatmapPath, q, &raw); err != nil {
		return nil, err
	}
	return decodeList[HeatmapCell](raw)
}

func (c *Client) AnalyticsOvertime(ctx context.Context, q AnalyticsQuery) ([]OvertimeEntry, error) {
	var raw json.RawMessage
	if err := c.analytics(ctx, OvertimePath, q, &raw); err != nil {
		return nil, err
	}
	return decodeList[OvertimeEntry](raw)
}

func (c *Client) AnalyticsPrediction(ctx context.Context, q PredictionQuery) (Prediction, error) {
	if err := q.Validate(); err != nil {
		return Prediction{}, err
	}
	v := url.Values{}
	setIfNotEmpty(v, "type", q.Type)
	setIfNotEmpty(v, "period", q.Period)

	var out Prediction
	if err := c.api.Do(ctx, http.MethodGet, PredictionPath, v, nil, &out); err != nil {
		return Prediction{}, err
	}
	return out, nil
}

func (c *Client) analytics(ctx context.Context, path string, q AnalyticsQuery, out any) error {
	if err := q.Validate(); err != nil {
		return err
	}
	v := url.Values{}
	setIfNotEmpty(v, "start_date", q.StartDate)
	setIfNotEmpty(v, "end_date", q.EndDate)
	setIfPositive(v, "user_id", q.UserID)
	return c.api.Do(ctx, http.MethodGet, path, v, nil, out)
}

func (c *Client) AuditLogs(ctx context.Context, q AuditLogQuery) (AuditLogPage, error) {
	v := url.Values{}
	setIfNotEmpty(v, "user_email", q.UserEmail)
	setIfNotEmpty(v, "action", q.Action)
	setIfNotEmpty(v, "entity_type", q.EntityType)
	setIfPositive(v, "entity_id", q.EntityID)
	setIfNotEmpty(v, "date", q.Date)
	setIfPositive(v, "page", q.Page)
	setIfPositive(v, "page_size", q.PageSize)

	var out AuditLogPage
	if err := c.api.Do(ctx, http.MethodGet, AuditLogsPath, v, nil, &out); err != nil {
		return AuditLogPage{}, err
	}
	return out, nil
}

func (c *Client) ListUsers(ctx context.Context, page, pageSize int) (UsersPage, error) {
	v := url.Values{}
	setIfPositive(v, "page", page)
	setIfPositive(v, "page_size", pageSize)

	var out UsersPage
	if err := c.api.Do(ctx, http.MethodGet, UsersPath, v, nil, &out); err != nil {
		return UsersPage{}, err
	}
	return out, nil
}

// AllUsers walks every page of the users list. It stops at the reported
// total or at the first empty page.
func (c *Client) AllUsers(ctx context.Context) ([]users.User, error) {
	var all []users.User
	for page := 1; ; page++ {
		p, err := c.ListUsers(ctx, page, DefaultPageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, p.Data...)
		if len(p.Data) == 0 || len(all) >= p.Total {
			return all, nil
		}
	}
}

func decodeList[T any](raw json.RawMessage) ([]T, error) {
	var list []T
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Data []T `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("[dashboard decodeList] %w", err)
	}
	if wrapped.Data == nil {
		wrapped.Data = []T{}
	}
	return wrapped.Data, nil
}

func setIfNotEmpty(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func setIfPositive(v url.Values, key string, value int) {
	if value > 0 {
		v.Set(key, strconv.Itoa(value))
	}
}
