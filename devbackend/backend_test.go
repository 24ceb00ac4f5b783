package devbackend_test

import (
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/jrsteele09/hr-console/auth"
	"github.com/jrsteele09/hr-console/backend"
	"github.com/jrsteele09/hr-console/dashboard"
	"github.com/jrsteele09/hr-console/devbackend"
	apperrors "github.com/jrsteele09/hr-console/internal/errors"
	"github.com/jrsteele09/hr-console/sessions"
	"github.com/jrsteele09/hr-console/token"
	"github.com/jrsteele09/hr-console/token/jwt"
	refreshrepofake "github.com/jrsteele09/hr-console/token/refresh/repofake"
	"github.com/jrsteele09/hr-console/tokenstore"
	"github.com/jrsteele09/hr-console/users"
	fakeuserrepo "github.com/jrsteele09/hr-console/users/repofake"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const today = "2025-03-10"

type testFixture struct {
	dev      *devbackend.Backend
	client   *backend.Client
	accounts map[string]*users.User
}

func setupTestFixture(t *testing.T, opts ...devbackend.Option) *testFixture {
	t.Helper()
	now := func() time.Time { return time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC) }

	userRepo := fakeuserrepo.NewFakeUserRepo()
	seeded, err := devbackend.SeedAccounts(userRepo, devbackend.DefaultPassword)
	require.NoError(t, err)

	tokens, err := token.New(refreshrepofake.NewFakeRefreshTokenRepo(), userRepo, jwt.NewHMACSigner("dev-secret"),
		token.WithNowFunc(time.Now),
	)
	require.NoError(t, err)

	opts = append([]devbackend.Option{devbackend.WithNowTime(now)}, opts...)
	dev, err := devbackend.New(userRepo, tokens, opts...)
	require.NoError(t, err)
	devbackend.SeedCheckins(dev.Records(), seeded, today)
	devbackend.SeedAbsences(dev.Records(), seeded, today)

	srv := httptest.NewServer(dev)
	t.Cleanup(srv.Close)

	f := &testFixture{
		dev:      dev,
		client:   backend.NewClient(srv.URL),
		accounts: make(map[string]*users.User),
	}
	for _, u := range seeded {
		f.accounts[u.Email] = u
	}
	return f
}

func (f *testFixture) login(t *testing.T, email string) (sessions.Session, *dashboard.Client) {
	t.Helper()
	s, _, err := f.client.Login(context.Background(), email, devbackend.DefaultPassword)
	require.NoError(t, err)
	return s, dashboard.NewClient(f.client, oauth2.StaticTokenSource(s.OAuth2Token()))
}

func TestLogin_EveryResponseShapeNormalizes(t *testing.T) {
	tests := []struct {
		shape       sessions.Shape
		wantRefresh bool
	}{
		{shape: sessions.ShapeV1Flat, wantRefresh: false},
		{shape: sessions.ShapeV2Token, wantRefresh: true},
		{shape: sessions.ShapeV3OAuth, wantRefresh: true},
	}

	for _, tt := range tests {
		t.Run(tt.shape.String(), func(t *testing.T) {
			f := setupTestFixture(t, devbackend.WithResponseShape(tt.shape))

			s, shape, err := f.client.Login(context.Background(), devbackend.HREmail, devbackend.DefaultPassword)
			require.NoError(t, err)
			require.Equal(t, tt.shape, shape)
			require.Equal(t, users.RoleHR, s.User.Role)
			require.Equal(t, devbackend.HREmail, s.User.Email)
			require.Equal(t, f.accounts[devbackend.HREmail].ID, s.User.ID)
			require.NotEmpty(t, s.AccessToken)
			require.Equal(t, tt.wantRefresh, s.RefreshToken != "")
			require.False(t, s.Expiry.IsZero(), "expiry comes from expires_in or the exp claim")
		})
	}
}

func TestLogin_Failures(t *testing.T) {
	f := setupTestFixture(t)

	tests := []struct {
		name     string
		email    string
		password string
		status   int
		message  string
	}{
		{name: "wrong password", email: devbackend.HREmail, password: "nope", status: 401, message: "Invalid credentials"},
		{name: "unknown user", email: "ghost@hr.local", password: "x", status: 401, message: "Invalid credentials"},
		{name: "pending approval", email: devbackend.PendingEmail, password: devbackend.DefaultPassword, status: 403, message: "Account pending approval"},
		{name: "missing password", email: devbackend.HREmail, password: "", status: 400, message: "Email and password are required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.client.Login(context.Background(), tt.email, tt.password)
			var httpErr *backend.HTTPError
			require.ErrorAs(t, err, &httpErr)
			require.Equal(t, tt.status, httpErr.Status)
			require.Equal(t, tt.message, err.Error())
		})
	}
}

func TestRefresh_RotatesAndLogoutRevokes(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	s, _ := f.login(t, devbackend.AdminEmail)

	next, err := f.client.Refresh(ctx, s.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, s.RefreshToken, next.RefreshToken)
	require.Equal(t, users.RoleAdmin, next.User.Role)

	_, err = f.client.Refresh(ctx, s.RefreshToken)
	var httpErr *backend.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusUnauthorized, httpErr.Status)

	require.NoError(t, f.client.Logout(ctx, next.RefreshToken))
	_, err = f.client.Refresh(ctx, next.RefreshToken)
	require.ErrorAs(t, err, &httpErr)
}

func TestBearer_RequiredAndRoleChecked(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.client.CurrentUser(ctx)
	var httpErr *backend.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusUnauthorized, httpErr.Status)

	s, dash := f.login(t, devbackend.EmployeeEmail)
	me, err := f.client.Authorized(oauth2.StaticTokenSource(s.OAuth2Token())).CurrentUser(ctx)
	require.NoError(t, err)
	require.Equal(t, users.RoleEmployee, me.Role)

	_, err = dash.ViewCheckins(ctx, today)
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusForbidden, httpErr.Status)
	require.Equal(t, "Insufficient permissions", err.Error())
}

func TestDashboard_EndToEnd(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	_, dash := f.login(t, devbackend.HREmail)

	summary, checkins, err := dash.Day(ctx, today)
	require.NoError(t, err)
	require.Len(t, checkins, 3)
	require.Equal(t, dashboard.SourceBackend, summary.Source)
	require.Equal(t, 3, summary.TotalCheckins)
	require.Equal(t, 3, summary.UniqueUsers)
	require.Equal(t, 1, summary.Late)

	empty, none, err := dash.Day(ctx, "2025-03-11")
	require.NoError(t, err)
	require.Empty(t, none)
	require.Equal(t, dashboard.SourceComputed, empty.Source)

	employee := f.accounts[devbackend.EmployeeEmail]
	created, err := dash.CreateCheckin(ctx, dashboard.CheckinForm{
		Date:         "2025-03-11",
		Time:         "9:40",
		UserID:       mustAtoi(t, employee.ID.String()),
		LocationType: dashboard.LocationHome,
		LateReason:   "Doctor",
	})
	require.NoError(t, err)
	require.True(t, created.Late)
	require.Equal(t, "Doctor", created.Notes)
	require.Equal(t, employee.Email, created.UserEmail)

	updated, err := dash.UpdateCheckin(ctx, created.CheckinID, dashboard.CheckinForm{
		Date:         "2025-03-11",
		Time:         "09:00",
		UserID:       mustAtoi(t, employee.ID.String()),
		LocationType: dashboard.LocationOffice,
	})
	require.NoError(t, err)
	require.False(t, updated.Late)
	require.Equal(t, created.CheckinID, updated.CheckinID)

	_, err = dash.UpdateCheckin(ctx, 999, dashboard.CheckinForm{Date: "2025-03-11", Time: "09:00", UserID: 1, LocationType: dashboard.LocationOffice})
	var httpErr *backend.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusNotFound, httpErr.Status)

	body, contentType, err := dash.ExportCheckins(ctx, dashboard.ExportQuery{StartDate: today, EndDate: "2025-03-11"})
	require.NoError(t, err)
	rows, err := csv.NewReader(body).ReadAll()
	require.NoError(t, body.Close())
	require.NoError(t, err)
	require.Equal(t, "text/csv", contentType)
	require.Len(t, rows, 5, "header plus four check-ins")
	require.Equal(t, "checkin_id", rows[0][0])

	trend, err := dash.MonthlyAnalytics(ctx, 0, 0)
	require.NoError(t, err)
	require.Equal(t, []dashboard.MonthlyPoint{{Month: "2025-03", Total: 4, Late: 1}}, trend)

	audit, err := dash.AuditLogs(ctx, dashboard.AuditLogQuery{Action: devbackend.ActionUpdateCheckin})
	require.NoError(t, err)
	require.Equal(t, 1, audit.Total)
	require.Equal(t, created.CheckinID, audit.Data[0].EntityID)
	require.Equal(t, devbackend.HREmail, audit.Data[0].UserEmail)

	page, err := dash.ListUsers(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 4, page.Total)
	active, pending := dashboard.SplitPendingApproval(page.Data)
	require.Len(t, active, 3)
	require.Len(t, pending, 1)
	for _, u := range page.Data {
		require.Empty(t, u.PasswordHash)
	}
}

func TestDashboard_AbsencesAndAnalytics(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	_, dash := f.login(t, devbackend.HREmail)
	employee := f.accounts[devbackend.EmployeeEmail]

	absences, err := dash.Absences(ctx, dashboard.AbsenceQuery{})
	require.NoError(t, err)
	require.Len(t, absences, 2)
	stats := dashboard.SummarizeAbsences(absences)
	require.Equal(t, 1, stats.Pending)
	require.Equal(t, 1, stats.Approved)
	require.Equal(t, []dashboard.AbsenceTypeCount{{Type: dashboard.AbsenceSick, Count: 1}, {Type: dashboard.AbsenceVacation, Count: 1}}, stats.ByType)

	nextWeek, err := dash.Absences(ctx, dashboard.AbsenceQuery{StartDate: "2025-03-17", EndDate: "2025-03-17"})
	require.NoError(t, err)
	require.Len(t, nextWeek, 1)
	require.Equal(t, mustAtoi(t, employee.ID.String()), nextWeek[0].UserID)
	require.Equal(t, 5, nextWeek[0].Days())

	_, err = dash.Absences(ctx, dashboard.AbsenceQuery{StartDate: "2025-03-18", EndDate: "2025-03-17"})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)

	heatmap, err := dash.AnalyticsHeatmap(ctx, dashboard.AnalyticsQuery{StartDate: today, EndDate: today})
	require.NoError(t, err)
	require.Equal(t, []dashboard.HeatmapCell{
		{Weekday: "Monday", Hour: 8, Checkins: 2},
		{Weekday: "Monday", Hour: 9, Checkins: 1, Late: 1},
	}, heatmap)

	prediction, err := dash.AnalyticsPrediction(ctx, dashboard.PredictionQuery{})
	require.NoError(t, err)
	require.Equal(t, dashboard.Prediction{Type: dashboard.PredictAttendance, Period: dashboard.PeriodWeek, Expected: 15, DailyAverage: 3, BasedOnDays: 1}, prediction)

	prediction, err = dash.AnalyticsPrediction(ctx, dashboard.PredictionQuery{Type: dashboard.PredictAbsence, Period: dashboard.PeriodMonth})
	require.NoError(t, err)
	require.Equal(t, 126, prediction.Expected, "six absence days over one recorded day")

	_, err = dash.AnalyticsPrediction(ctx, dashboard.PredictionQuery{Period: "decade"})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)

	overtime, err := dash.AnalyticsOvertime(ctx, dashboard.AnalyticsQuery{})
	require.NoError(t, err)
	require.Empty(t, overtime)

	f.dev.Records().AddCheckin(dashboard.Checkin{
		UserID: mustAtoi(t, employee.ID.String()), UserName: employee.DisplayName(), UserEmail: employee.Email,
		Date: today, CheckinTime: "07:30", LocationType: dashboard.LocationOffice, Overtime: true,
	})
	overtime, err = dash.AnalyticsOvertime(ctx, dashboard.AnalyticsQuery{UserID: mustAtoi(t, employee.ID.String())})
	require.NoError(t, err)
	require.Equal(t, []dashboard.OvertimeEntry{{
		UserID: mustAtoi(t, employee.ID.String()), UserName: employee.DisplayName(), UserEmail: employee.Email, OvertimeCheckins: 1,
	}}, overtime)
}

func TestGateway_AgainstDevBackend(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	sc := auth.NewSessionContext(tokenstore.NewInMemoryStore(), users.DefaultAllowList)
	gw, err := auth.NewGateway(f.client, sc, auth.WithRefreshLeeway(time.Hour))
	require.NoError(t, err)

	_, err = gw.Login(ctx, &auth.Credentials{Email: devbackend.EmployeeEmail, Password: devbackend.DefaultPassword})
	var authzErr *auth.AuthorizationError
	require.ErrorAs(t, err, &authzErr)
	require.False(t, sc.IsAuthenticated())

	s, err := gw.Login(ctx, &auth.Credentials{Email: devbackend.HREmail, Password: devbackend.DefaultPassword})
	require.NoError(t, err)
	require.True(t, sc.IsAuthenticated())

	// tokens live 15 minutes, well inside the one hour leeway
	require.NoError(t, gw.EnsureFresh(ctx))
	refreshed, ok := sc.Session()
	require.True(t, ok)
	require.NotEqual(t, s.RefreshToken, refreshed.RefreshToken)
	require.Equal(t, devbackend.HREmail, refreshed.User.Email)

	gw.Logout(ctx)
	require.False(t, sc.IsAuthenticated())
	_, err = f.client.Refresh(ctx, refreshed.RefreshToken)
	require.Error(t, err)
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	require.NoError(t, err)
	return n
}
