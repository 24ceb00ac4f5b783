package dashboard_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/jrsteele09/hr-console/backend"
	"github.com/jrsteele09/hr-console/dashboard"
	apperrors "github.com/jrsteele09/hr-console/internal/errors"
	"github.com/jrsteele09/hr-console/users"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func testCheckins() []dashboard.Checkin {
	return []dashboard.Checkin{
		{CheckinID: 1, UserID: 10, UserName: "Ana Perez", UserEmail: "ana@x.com", LocationType: dashboard.LocationOffice},
		{CheckinID: 2, UserID: 11, UserName: "Luis Gomez", UserEmail: "luis@x.com", LocationType: dashboard.LocationHome, Late: true},
		{CheckinID: 3, UserID: 12, UserName: "Marta Ruiz", UserEmail: "marta@x.com", LocationType: dashboard.LocationOffice, Overtime: true},
		{CheckinID: 4, UserID: 10, UserName: "Ana Perez", UserEmail: "ana@x.com", LocationType: dashboard.LocationHome, Late: true, Overtime: true},
	}
}

func ids(checkins []dashboard.Checkin) []int {
	out := make([]int, len(checkins))
	for i, c := range checkins {
		out[i] = c.CheckinID
	}
	return out
}

func TestCheckinFilter_Apply(t *testing.T) {
	tests := []struct {
		name   string
		filter dashboard.CheckinFilter
		want   []int
	}{
		{name: "no filter", filter: dashboard.CheckinFilter{}, want: []int{1, 2, 3, 4}},
		{name: "all explicitly", filter: dashboard.CheckinFilter{Status: "all", Location: "all"}, want: []int{1, 2, 3, 4}},
		{name: "search name", filter: dashboard.CheckinFilter{Search: "ANA"}, want: []int{1, 4}},
		{name: "search email", filter: dashboard.CheckinFilter{Search: "luis@"}, want: []int{2}},
		{name: "late", filter: dashboard.CheckinFilter{Status: dashboard.StatusLate}, want: []int{2, 4}},
		{name: "overtime", filter: dashboard.CheckinFilter{Status: dashboard.StatusOvertime}, want: []int{3, 4}},
		{name: "on time", filter: dashboard.CheckinFilter{Status: dashboard.StatusOnTime}, want: []int{1}},
		{name: "home", filter: dashboard.CheckinFilter{Location: dashboard.LocationHome}, want: []int{2, 4}},
		{name: "combined", filter: dashboard.CheckinFilter{Search: "ana", Status: dashboard.StatusLate, Location: dashboard.LocationHome}, want: []int{4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ids(tt.filter.Apply(testCheckins())))
		})
	}
}

func TestPaginate(t *testing.T) {
	items := make([]int, 120)
	for i := range items {
		items[i] = i
	}

	p := dashboard.Paginate(items, 0, 0)
	require.Equal(t, 1, p.Page)
	require.Equal(t, dashboard.DefaultPageSize, p.PageSize)
	require.Len(t, p.Items, 50)
	require.Equal(t, 3, p.TotalPages)

	p = dashboard.Paginate(items, 3, 50)
	require.Equal(t, []int{100, 101}, p.Items[:2])
	require.Len(t, p.Items, 20)

	p = dashboard.Paginate(items, 4, 50)
	require.Empty(t, p.Items)
	require.Equal(t, 120, p.Total)

	require.Equal(t, 0, dashboard.Paginate([]int{}, 1, 10).TotalPages)
}

func TestSummaries(t *testing.T) {
	s := dashboard.SummarizeCheckins("2025-03-10", testCheckins())
	require.Equal(t, 4, s.TotalCheckins)
	require.Equal(t, 2, s.OnTime)
	require.Equal(t, 2, s.Late)
	require.Equal(t, 2, s.Overtime)
	require.Equal(t, 3, s.UniqueUsers)
	require.Equal(t, dashboard.SourceComputed, s.Source)
	require.Equal(t, 50, s.Rate())

	api := dashboard.FromAPISummary(dashboard.APIDailySummary{Date: "2025-03-10", TotalCheckins: 9, TotalOnTime: 7, TotalLate: 2}, testCheckins())
	require.Equal(t, 3, api.UniqueUsers)
	require.Equal(t, dashboard.SourceBackend, api.Source)
}

func TestProductivityRate(t *testing.T) {
	require.Equal(t, 0, dashboard.ProductivityRate(0, 0))
	require.Equal(t, 67, dashboard.ProductivityRate(2, 3))
	require.Equal(t, 33, dashboard.ProductivityRate(1, 3))
	require.Equal(t, 100, dashboard.ProductivityRate(5, 5))
}

func TestSplitPendingApproval(t *testing.T) {
	active, pending := dashboard.SplitPendingApproval([]users.User{
		{Email: "a@x.com", Active: true},
		{Email: "b@x.com", PendingApproval: true},
		{Email: "c@x.com"},
	})
	require.Len(t, active, 2)
	require.Len(t, pending, 1)
	require.Equal(t, "b@x.com", pending[0].Email)
}

func TestCheckinForm_Validate(t *testing.T) {
	valid := dashboard.CheckinForm{
		Date:         "2025-03-10",
		Time:         "09:05",
		UserID:       3,
		LocationType: dashboard.LocationOffice,
		GPSLat:       -34.6,
		GPSLong:      -58.4,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(f *dashboard.CheckinForm)
	}{
		{name: "bad date", mutate: func(f *dashboard.CheckinForm) { f.Date = "10/03/2025" }},
		{name: "bad time", mutate: func(f *dashboard.CheckinForm) { f.Time = "9am" }},
		{name: "user id", mutate: func(f *dashboard.CheckinForm) { f.UserID = 0 }},
		{name: "location", mutate: func(f *dashboard.CheckinForm) { f.LocationType = "beach" }},
		{name: "latitude", mutate: func(f *dashboard.CheckinForm) { f.GPSLat = 91 }},
		{name: "longitude", mutate: func(f *dashboard.CheckinForm) { f.GPSLong = -181 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := valid
			tt.mutate(&f)
			require.ErrorIs(t, f.Validate(), apperrors.ErrInvalidInput)
		})
	}
}

func newDashboardClient(t *testing.T, handler http.HandlerFunc) *dashboard.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "tok"})
	return dashboard.NewClient(backend.NewClient(srv.URL), ts)
}

func TestClient_DayFallsBackWhenSummaryFails(t *testing.T) {
	c := newDashboardClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case dashboard.CheckinsViewPath:
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"data": testCheckins()})
		default:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":"summary not ready"}`)
		}
	})

	summary, checkins, err := c.Day(context.Background(), "2025-03-10")
	require.NoError(t, err)
	require.Len(t, checkins, 4)
	require.Equal(t, dashboard.SourceComputed, summary.Source)
	require.Equal(t, 3, summary.UniqueUsers)
}

func TestClient_CreateCheckinValidatesBeforeSending(t *testing.T) {
	c := newDashboardClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("invalid form must not reach the backend")
	})

	_, err := c.CreateCheckin(context.Background(), dashboard.CheckinForm{})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestClient_UpdateCheckin(t *testing.T) {
	c := newDashboardClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, dashboard.CheckinsPath+"/42", r.URL.Path)

		var form dashboard.CheckinForm
		require.NoError(t, json.NewDecoder(r.Body).Decode(&form))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(dashboard.Checkin{CheckinID: 42, UserID: form.UserID, Notes: form.Notes})
	})

	out, err := c.UpdateCheckin(context.Background(), 42, dashboard.CheckinForm{
		Date: "2025-03-10", Time: "08:00", UserID: 3, LocationType: dashboard.LocationHome, Notes: "fixed",
	})
	require.NoError(t, err)
	require.Equal(t, 42, out.CheckinID)
	require.Equal(t, "fixed", out.Notes)
}

func TestClient_AllUsersWalksEveryPage(t *testing.T) {
	const total = 5
	var pages []string
	c := newDashboardClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, dashboard.UsersPath, r.URL.Path)
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		pages = append(pages, r.URL.Query().Get("page"))

		// the backend caps pages at two users whatever page_size asks for
		out := dashboard.UsersPage{Total: total, Page: page, PageSize: 2}
		for id := (page-1)*2 + 1; id <= total && id <= page*2; id++ {
			out.Data = append(out.Data, users.User{ID: users.ID(strconv.Itoa(id)), Role: users.RoleEmployee, PendingApproval: id == 5})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})

	all, err := c.AllUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, all, total)
	require.Equal(t, []string{"1", "2", "3"}, pages)

	_, pending := dashboard.SplitPendingApproval(all)
	require.Len(t, pending, 1)
	require.Equal(t, users.ID("5"), pending[0].ID)
}

func TestClient_AllUsersStopsOnEmptyPage(t *testing.T) {
	calls := 0
	c := newDashboardClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":[],"total":10,"page":1,"page_size":50}`)
	})

	all, err := c.AllUsers(context.Background())
	require.NoError(t, err)
	require.Empty(t, all)
	require.Equal(t, 1, calls)
}

func TestAbsence_DaysAndOverlap(t *testing.T) {
	a := dashboard.Absence{StartDate: "2025-03-17", EndDate: "2025-03-21"}
	require.Equal(t, 5, a.Days())
	require.True(t, a.Overlaps("2025-03-21", ""))
	require.True(t, a.Overlaps("", "2025-03-17"))
	require.False(t, a.Overlaps("2025-03-22", ""))
	require.False(t, a.Overlaps("2025-03-01", "2025-03-16"))

	require.Equal(t, 0, dashboard.Absence{StartDate: "2025-03-21", EndDate: "2025-03-17"}.Days())
	require.Equal(t, 0, dashboard.Absence{StartDate: "soon", EndDate: "2025-03-17"}.Days())
}

func TestSummarizeAbsences(t *testing.T) {
	stats := dashboard.SummarizeAbsences([]dashboard.Absence{
		{Type: dashboard.AbsenceVacation, Status: dashboard.AbsenceApproved},
		{Type: dashboard.AbsenceSick, Status: dashboard.AbsencePending},
		{Type: dashboard.AbsenceVacation, Status: dashboard.AbsenceRejected},
	})
	require.Equal(t, dashboard.AbsenceStats{
		Total: 3, Pending: 1, Approved: 1, Rejected: 1,
		ByType: []dashboard.AbsenceTypeCount{{Type: dashboard.AbsenceSick, Count: 1}, {Type: dashboard.AbsenceVacation, Count: 2}},
	}, stats)

	require.NotNil(t, dashboard.SummarizeAbsences(nil).ByType)
}

func TestAnalyticsQueries_Validate(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		valid bool
	}{
		{name: "open range", err: dashboard.AnalyticsQuery{}.Validate(), valid: true},
		{name: "bounded range", err: dashboard.AnalyticsQuery{StartDate: "2025-03-01", EndDate: "2025-03-31"}.Validate(), valid: true},
		{name: "bad start", err: dashboard.AnalyticsQuery{StartDate: "03/01/2025"}.Validate()},
		{name: "reversed range", err: dashboard.AbsenceQuery{StartDate: "2025-03-31", EndDate: "2025-03-01"}.Validate()},
		{name: "default prediction", err: dashboard.PredictionQuery{}.Validate(), valid: true},
		{name: "absence per quarter", err: dashboard.PredictionQuery{Type: dashboard.PredictAbsence, Period: dashboard.PeriodQuarter}.Validate(), valid: true},
		{name: "unknown type", err: dashboard.PredictionQuery{Type: "weather"}.Validate()},
		{name: "unknown period", err: dashboard.PredictionQuery{Period: "year"}.Validate()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.valid {
				require.NoError(t, tt.err)
				return
			}
			require.ErrorIs(t, tt.err, apperrors.ErrInvalidInput)
		})
	}
}
