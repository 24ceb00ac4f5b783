package devbackend

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/hr-console/dashboard"
)

var ErrCheckinNotFound = errors.New("check-in not found")

// Audit actions
const (
	ActionLogin         = "login"
	ActionLogout        = "logout"
	ActionCreateCheckin = "create_checkin"
	ActionUpdateCheckin = "update_checkin"
	ActionExport        = "export_checkins"
)

const entityCheckin = "checkin"

// Records holds the attendance data and the audit trail.
type Records struct {
	mu       sync.RWMutex
	checkins map[int]dashboard.Checkin
	nextID   int
	absences []dashboard.Absence
	audit    []dashboard.AuditLog
	nowTime  func() time.Time
}

func NewRecords(nowTime func() time.Time) *Records {
	if nowTime == nil {
		nowTime = time.Now
	}
	return &Records{
		checkins: make(map[int]dashboard.Checkin),
		nowTime:  nowTime,
	}
}

// AddCheckin assigns the next id to c and stores it.
func (r *Records) AddCheckin(c dashboard.Checkin) dashboard.Checkin {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c.CheckinID = r.nextID
	r.checkins[c.CheckinID] = c
	return c
}

// UpdateCheckin applies fn to the stored check-in with id.
func (r *Records) UpdateCheckin(id int, fn func(*dashboard.Checkin)) (dashboard.Checkin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.checkins[id]
	if !ok {
		return dashboard.Checkin{}, ErrCheckinNotFound
	}
	fn(&c)
	c.CheckinID = id
	r.checkins[id] = c
	return c, nil
}

// CheckinsOn returns the check-ins of date ordered by time.
func (r *Records) CheckinsOn(date string) []dashboard.Checkin {
	return r.Between(date, date, 0)
}

// Between returns check-ins with start <= date <= end. Empty bounds are
// open and userID 0 matches everyone.
func (r *Records) Between(start, end string, userID int) []dashboard.Checkin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]dashboard.Checkin, 0)
	for _, c := range r.checkins {
		if start != "" && c.Date < start {
			continue
		}
		if end != "" && c.Date > end {
			continue
		}
		if userID != 0 && c.UserID != userID {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].CheckinTime != out[j].CheckinTime {
			return out[i].CheckinTime < out[j].CheckinTime
		}
		return out[i].CheckinID < out[j].CheckinID
	})
	return out
}

// DailySummary aggregates one day. ok is false when nothing was recorded.
func (r *Records) DailySummary(date string) (dashboard.APIDailySummary, bool) {
	day := r.CheckinsOn(date)
	if len(day) == 0 {
		return dashboard.APIDailySummary{}, false
	}
	s := dashboard.APIDailySummary{Date: date, TotalCheckins: len(day), UpdatedAt: r.nowTime()}
	for _, c := range day {
		if c.Late {
			s.TotalLate++
		} else {
			s.TotalOnTime++
		}
		if c.Overtime {
			s.TotalOvertime++
		}
	}
	s.CreatedAt = s.UpdatedAt
	return s, true
}

// Monthly groups every check-in by YYYY-MM, oldest month first.
func (r *Records) Monthly() []dashboard.MonthlyPoint {
	byMonth := make(map[string]*dashboard.MonthlyPoint)
	for _, c := range r.Between("", "", 0) {
		if len(c.Date) < 7 {
			continue
		}
		month := c.Date[:7]
		p, ok := byMonth[month]
		if !ok {
			p = &dashboard.MonthlyPoint{Month: month}
			byMonth[month] = p
		}
		p.Total++
		if c.Late {
			p.Late++
		}
		if c.Overtime {
			p.Overtime++
		}
	}

	out := make([]dashboard.MonthlyPoint, 0, len(byMonth))
	for _, p := range byMonth {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// Audit appends an entry stamped with the current time.
func (r *Records) Audit(userEmail, action, entityType string, entityID int, details map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audit = append(r.audit, dashboard.AuditLog{
		ID:         len(r.audit) + 1,
		UserEmail:  userEmail,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		Timestamp:  r.nowTime(),
	})
}

// AuditPage filters the audit log newest first and pages the result.
func (r *Records) AuditPage(q dashboard.AuditLogQuery) dashboard.AuditLogPage {
	r.mu.RLock()
	matched := make([]dashboard.AuditLog, 0)
	for i := len(r.audit) - 1; i >= 0; i-- {
		e := r.audit[i]
		if q.UserEmail != "" && !strings.EqualFold(e.UserEmail, q.UserEmail) {
			continue
		}
		if q.Action != "" && e.Action != q.Action {
			continue
		}
		if q.EntityType != "" && e.EntityType != q.EntityType {
			continue
		}
		if q.EntityID != 0 && e.EntityID != q.EntityID {
			continue
		}
		if q.Date != "" && e.Timestamp.Format(time.DateOnly) != q.Date {
			continue
		}
		matched = append(matched, e)
	}
	r.mu.RUnlock()

	page := dashboard.Paginate(matched, q.Page, q.PageSize)
	return dashboard.AuditLogPage{
		Data:     page.Items,
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}
}
