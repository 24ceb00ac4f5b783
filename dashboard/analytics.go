package dashboard

import (
	"errors"
	"fmt"
	"sort"
	"time"

	apperrors "github.com/jrsteele09/hr-console/internal/errors"
)

// Absence types
const (
	AbsenceVacation = "vacation"
	AbsenceSick     = "sick"
	AbsencePersonal = "personal"
	AbsenceOther    = "other"
)

// Absence statuses
const (
	AbsencePending  = "pending"
	AbsenceApproved = "approved"
	AbsenceRejected = "rejected"
)

// Prediction kinds and periods
const (
	PredictAttendance = "attendance"
	PredictAbsence    = "absence"

	PeriodWeek    = "week"
	PeriodMonth   = "month"
	PeriodQuarter = "quarter"
)

// Absence is one leave request as returned by /absences.
type Absence struct {
	ID         int        `json:"id"`
	UserID     int        `json:"user_id"`
	StartDate  string     `json:"start_date"`
	EndDate    string     `json:"end_date"`
	Type       string     `json:"type"`
	Reason     string     `json:"reason,omitempty"`
	Status     string     `json:"status"`
	ApprovedBy int        `json:"approved_by,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Days counts the calendar days the absence covers, both ends included.
// Unparseable dates count as zero.
func (a Absence) Days() int {
	start, err := time.Parse(time.DateOnly, a.StartDate)
	if err != nil {
		return 0
	}
	end, err := time.Parse(time.DateOnly, a.EndDate)
	if err != nil || end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// Overlaps reports whether the absence touches [start, end]. Empty bounds
// are open.
func (a Absence) Overlaps(start, end string) bool {
	if start != "" && a.EndDate < start {
		return false
	}
	if end != "" && a.StartDate > end {
		return false
	}
	return true
}

type AbsenceTypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// AbsenceStats is the breakdown the absences view shows.
type AbsenceStats struct {
	Total    int                `json:"total_absences"`
	Pending  int                `json:"pending_count"`
	Approved int                `json:"approved_count"`
	Rejected int                `json:"rejected_count"`
	ByType   []AbsenceTypeCount `json:"by_type"`
}

// SummarizeAbsences counts absences by status and by type. Types are
// ordered by name.
func SummarizeAbsences(absences []Absence) AbsenceStats {
	s := AbsenceStats{Total: len(absences), ByType: []AbsenceTypeCount{}}
	byType := make(map[string]int)
	for _, a := range absences {
		switch a.Status {
		case AbsencePending:
			s.Pending++
		case AbsenceApproved:
			s.Approved++
		case AbsenceRejected:
			s.Rejected++
		}
		byType[a.Type]++
	}
	for t, n := range byType {
		s.ByType = append(s.ByType, AbsenceTypeCount{Type: t, Count: n})
	}
	sort.Slice(s.ByType, func(i, j int) bool { return s.ByType[i].Type < s.ByType[j].Type })
	return s
}

// AbsenceQuery bounds the absences listed. Zero values are not sent.
type AbsenceQuery struct {
	StartDate string
	EndDate   string
}

func (q AbsenceQuery) Validate() error {
	return validateRange(q.StartDate, q.EndDate)
}

// AnalyticsQuery bounds the heatmap and overtime analytics. Zero values
// are not sent.
type AnalyticsQuery struct {
	StartDate string
	EndDate   string
	UserID    int
}

// Validate checks the date bounds. The result wraps ErrInvalidInput.
func (q AnalyticsQuery) Validate() error {
	return validateRange(q.StartDate, q.EndDate)
}

// HeatmapCell counts the check-ins of one weekday and hour.
type HeatmapCell struct {
	Weekday  string `json:"weekday"`
	Hour     int    `json:"hour"`
	Checkins int    `json:"checkins"`
	Late     int    `json:"late"`
}

// OvertimeEntry is one employee's overtime in the queried range.
type OvertimeEntry struct {
	UserID           int    `json:"user_id"`
	UserName         string `json:"user_name"`
	UserEmail        string `json:"user_email"`
	OvertimeCheckins int    `json:"overtime_checkins"`
}

// PredictionQuery selects what to forecast. Empty fields take the backend
// defaults, attendance over a week.
type PredictionQuery struct {
	Type   string
	Period string
}

func (q PredictionQuery) Validate() error {
	var errs []error
	switch q.Type {
	case "", PredictAttendance, PredictAbsence:
	default:
		errs = append(errs, fmt.Errorf("type must be %q or %q, got %q", PredictAttendance, PredictAbsence, q.Type))
	}
	if q.Period != "" && PeriodWorkdays(q.Period) == 0 {
		errs = append(errs, fmt.Errorf("period must be %q, %q or %q, got %q", PeriodWeek, PeriodMonth, PeriodQuarter, q.Period))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, errors.Join(errs...))
}

// Prediction is the expected count of check-ins or absence days over the
// coming period.
type Prediction struct {
	Type         string  `json:"type"`
	Period       string  `json:"period"`
	Expected     int     `json:"expected"`
	DailyAverage float64 `json:"daily_average"`
	BasedOnDays  int     `json:"based_on_days"`
}

// PeriodWorkdays is the number of working days in a prediction period, or
// 0 for an unknown one.
func PeriodWorkdays(period string) int {
	switch period {
	case PeriodWeek:
		return 5
	case PeriodMonth:
		return 21
	case PeriodQuarter:
		return 63
	}
	return 0
}

func validateRange(start, end string) error {
	var errs []error
	for _, f := range [][2]string{{"start_date", start}, {"end_date", end}} {
		if f[1] == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, f[1]); err != nil {
			errs = append(errs, fmt.Errorf("%s must be YYYY-MM-DD, got %q", f[0], f[1]))
		}
	}
	if len(errs) == 0 && start != "" && end != "" && end < start {
		errs = append(errs, errors.New("end_date is before start_date"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, errors.Join(errs...))
}
