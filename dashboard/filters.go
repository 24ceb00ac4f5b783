package dashboard

import (
	"strings"
)

const DefaultPageSize = 50

// Status filter values
const (
	StatusAll      = "all"
	StatusLate     = "late"
	StatusOvertime = "overtime"
	StatusOnTime   = "ontime"
)

// LocationAll disables the location filter.
const LocationAll = "all"

// CheckinFilter narrows a day of check-ins the way the attendance table does.
// Empty fields mean "all".
type CheckinFilter struct {
	Search   string // case-insensitive match on user name or email
	Status   string // all, late, overtime or ontime
	Location string // all, home or office
}

// Apply returns the matching check-ins in their original order.
func (f CheckinFilter) Apply(checkins []Checkin) []Checkin {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]Checkin, 0, len(checkins))
	for _, c := range checkins {
		if search != "" &&
			!strings.Contains(strings.ToLower(c.UserName), search) &&
			!strings.Contains(strings.ToLower(c.UserEmail), search) {
			continue
		}
		if !f.matchesStatus(c) {
			continue
		}
		if f.Location != "" && f.Location != LocationAll && c.LocationType != f.Location {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (f CheckinFilter) matchesStatus(c Checkin) bool {
	switch f.Status {
	case StatusLate:
		return c.Late
	case StatusOvertime:
		return c.Overtime
	case StatusOnTime:
		return c.OnTime()
	default:
		return true
	}
}

// Page is one page of a client-side paginated list.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Paginate returns page (1-based) of items. Out of range pages are empty;
// non-positive arguments fall back to page 1 and DefaultPageSize.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	total := len(items)
	p := Page[T]{
		Items:      []T{},
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}

	start := (page - 1) * pageSize
	if start >= total {
		return p
	}
	end := min(start+pageSize, total)
	p.Items = items[start:end]
	return p
}
