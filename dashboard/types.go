// Package dashboard is the typed client of the backend dashboard endpoints
// plus the client-side filtering, paging and summaries the console shows.
package dashboard

import (
	"time"

	"github.com/jrsteele09/hr-console/users"
)

// Location types
const (
	LocationHome   = "home"
	LocationOffice = "office"
)

// Checkin is one check-in record as returned by /checkins/view.
type Checkin struct {
	CheckinID      int     `json:"checkin_id"`
	UserID         int     `json:"user_id"`
	UserName       string  `json:"user_name"`
	UserEmail      string  `json:"user_email"`
	Date           string  `json:"date"`
	CheckinTime    string  `json:"checkin_time"`
	CheckoutTime   string  `json:"checkout_time,omitempty"`
	CheckoutStatus string  `json:"checkout_status,omitempty"`
	LocationType   string  `json:"location_type"`
	LocationDetail string  `json:"location_detail,omitempty"`
	GPSLat         float64 `json:"gps_lat"`
	GPSLong        float64 `json:"gps_long"`
	Late           bool    `json:"late"`
	Overtime       bool    `json:"overtime"`
	Notes          string  `json:"notes,omitempty"`
}

// OnTime is neither late nor overtime.
func (c Checkin) OnTime() bool {
	return !c.Late && !c.Overtime
}

// APIDailySummary is the body of /daily-summary.
type APIDailySummary struct {
	Date          string    `json:"date"`
	TotalCheckins int       `json:"total_checkins"`
	TotalOnTime   int       `json:"total_on_time"`
	TotalLate     int       `json:"total_late"`
	TotalOvertime int       `json:"total_overtime"`
	CreatedAt     time.Time `json:"created_at,omitzero"`
	UpdatedAt     time.Time `json:"updated_at,omitzero"`
}

// Summary sources
const (
	SourceBackend  = "backend"
	SourceComputed = "computed"
)

// DailySummary is what the console shows for one day.
type DailySummary struct {
	Date          string `json:"date"`
	TotalCheckins int    `json:"total_checkins"`
	OnTime        int    `json:"on_time"`
	Late          int    `json:"late"`
	Absent        int    `json:"absent"`
	UniqueUsers   int    `json:"unique_users"`
	Overtime      int    `json:"overtime"`
	Source        string `json:"source"`
}

// MonthlyPoint is one month of the attendance trend.
type MonthlyPoint struct {
	Month    string `json:"month"`
	Total    int    `json:"total"`
	Late     int    `json:"late"`
	Overtime int    `json:"overtime"`
}

type MonthlyAnalytics struct {
	Data []MonthlyPoint `json:"data"`
}

type AuditLog struct {
	ID         int            `json:"id"`
	UserEmail  string         `json:"user_email"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   int            `json:"entity_id"`
	Details    map[string]any `json:"details,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

type AuditLogPage struct {
	Data     []AuditLog `json:"data"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}

// AuditLogQuery filters the audit log. Zero values are not sent.
type AuditLogQuery struct {
	UserEmail  string
	Action     string
	EntityType string
	EntityID   int
	Date       string
	Page       int
	PageSize   int
}

// ExportQuery selects the check-ins to export. Zero values are not sent.
type ExportQuery struct {
	StartDate string
	EndDate   string
	UserID    int
}

type UsersPage struct {
	Data     []users.User `json:"data"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}
