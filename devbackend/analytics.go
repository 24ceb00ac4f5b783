package devbackend

import (
	"math"
	"sort"
	"time"

	"github.com/jrsteele09/hr-console/dashboard"
)

// AddAbsence assigns the next absence id to a and stamps it.
func (r *Records) AddAbsence(a dashboard.Absence) dashboard.Absence {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.nowTime()
	a.ID = len(r.absences) + 1
	a.CreatedAt, a.UpdatedAt = now, now
	r.absences = append(r.absences, a)
	return a
}

// Absences returns the absences overlapping [start, end], earliest first.
func (r *Records) Absences(start, end string) []dashboard.Absence {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]dashboard.Absence, 0)
	for _, a := range r.absences {
		if a.Overlaps(start, end) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate < out[j].StartDate })
	return out
}

// Heatmap counts check-ins per weekday and hour, Sunday first.
func (r *Records) Heatmap(start, end string, userID int) []dashboard.HeatmapCell {
	type key struct {
		day  time.Weekday
		hour int
	}
	cells := make(map[key]*dashboard.HeatmapCell)
	for _, c := range r.Between(start, end, userID) {
		date, err := time.Parse(time.DateOnly, c.Date)
		if err != nil {
			continue
		}
		at, err := time.Parse("15:04", c.CheckinTime)
		if err != nil {
			continue
		}
		k := key{day: date.Weekday(), hour: at.Hour()}
		cell, ok := cells[k]
		if !ok {
			cell = &dashboard.HeatmapCell{Weekday: k.day.String(), Hour: k.hour}
			cells[k] = cell
		}
		cell.Checkins++
		if c.Late {
			cell.Late++
		}
	}

	keys := make([]key, 0, len(cells))
	for k := range cells {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].day != keys[j].day {
			return keys[i].day < keys[j].day
		}
		return keys[i].hour < keys[j].hour
	})
	out := make([]dashboard.HeatmapCell, 0, len(keys))
	for _, k := range keys {
		out = append(out, *cells[k])
	}
	return out
}

// Overtime ranks employees by overtime check-ins, most first. Employees
// without overtime are left out.
func (r *Records) Overtime(start, end string, userID int) []dashboard.OvertimeEntry {
	byUser := make(map[int]*dashboard.OvertimeEntry)
	for _, c := range r.Between(start, end, userID) {
		if !c.Overtime {
			continue
		}
		e, ok := byUser[c.UserID]
		if !ok {
			e = &dashboard.OvertimeEntry{UserID: c.UserID, UserName: c.UserName, UserEmail: c.UserEmail}
			byUser[c.UserID] = e
		}
		e.OvertimeCheckins++
	}

	out := make([]dashboard.OvertimeEntry, 0, len(byUser))
	for _, e := range byUser {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OvertimeCheckins != out[j].OvertimeCheckins {
			return out[i].OvertimeCheckins > out[j].OvertimeCheckins
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

// Predict projects the daily average over the days with check-ins onto the
// working days of the period. Rejected absences are not counted.
func (r *Records) Predict(kind, period string) dashboard.Prediction {
	if kind == "" {
		kind = dashboard.PredictAttendance
	}
	if period == "" {
		period = dashboard.PeriodWeek
	}
	p := dashboard.Prediction{Type: kind, Period: period}

	checkins := r.Between("", "", 0)
	days := make(map[string]struct{})
	for _, c := range checkins {
		days[c.Date] = struct{}{}
	}
	p.BasedOnDays = len(days)
	if p.BasedOnDays == 0 {
		return p
	}

	var total int
	switch kind {
	case dashboard.PredictAbsence:
		for _, a := range r.Absences("", "") {
			if a.Status != dashboard.AbsenceRejected {
				total += a.Days()
			}
		}
	default:
		total = len(checkins)
	}
	p.DailyAverage = math.Round(float64(total)/float64(p.BasedOnDays)*100) / 100
	p.Expected = int(math.Round(float64(total) / float64(p.BasedOnDays) * float64(dashboard.PeriodWorkdays(period))))
	return p
}
