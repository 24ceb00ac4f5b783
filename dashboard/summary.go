package dashboard

import (
	"math"

	"github.com/jrsteele09/hr-console/users"
)

// SummarizeCheckins computes a day summary from the check-ins themselves.
// It is used when the daily-summary endpoint is unavailable.
func SummarizeCheckins(date string, checkins []Checkin) DailySummary {
	s := DailySummary{
		Date:          date,
		TotalCheckins: len(checkins),
		UniqueUsers:   uniqueUsers(checkins),
		Source:        SourceComputed,
	}
	for _, c := range checkins {
		if c.Late {
			s.Late++
		} else {
			s.OnTime++
		}
		if c.Overtime {
			s.Overtime++
		}
	}
	return s
}

// FromAPISummary adopts the backend totals. Unique users are always counted
// from the check-ins since the backend does not report them.
func FromAPISummary(api APIDailySummary, checkins []Checkin) DailySummary {
	return DailySummary{
		Date:          api.Date,
		TotalCheckins: api.TotalCheckins,
		OnTime:        api.TotalOnTime,
		Late:          api.TotalLate,
		Overtime:      api.TotalOvertime,
		UniqueUsers:   uniqueUsers(checkins),
		Source:        SourceBackend,
	}
}

// ProductivityRate is the rounded percentage of on-time check-ins, 0 when
// there are none.
func ProductivityRate(onTime, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(onTime) / float64(total) * 100))
}

// Rate returns the productivity rate of the summary.
func (s DailySummary) Rate() int {
	return ProductivityRate(s.OnTime, s.TotalCheckins)
}

// SplitPendingApproval separates approved users from those awaiting approval.
func SplitPendingApproval(all []users.User) (active, pending []users.User) {
	active = []users.User{}
	pending = []users.User{}
	for _, u := range all {
		if u.PendingApproval {
			pending = append(pending, u)
			continue
		}
		active = append(active, u)
	}
	return active, pending
}

func uniqueUsers(checkins []Checkin) int {
	seen := make(map[int]struct{}, len(checkins))
	for _, c := range checkins {
		seen[c.UserID] = struct{}{}
	}
	return len(seen)
}
