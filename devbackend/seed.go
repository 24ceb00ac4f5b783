package devbackend

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jrsteele09/hr-console/dashboard"
	"github.com/jrsteele09/hr-console/users"
)

const DefaultPassword = "changeme"

// Seeded accounts
const (
	AdminEmail    = "admin@hr.local"
	HREmail       = "hr@hr.local"
	EmployeeEmail = "employee@hr.local"
	PendingEmail  = "pending@hr.local"
)

// SeedAccounts creates one account per role plus one awaiting approval,
// all with password. Existing accounts are overwritten.
func SeedAccounts(repo users.UserRepo, password string) ([]*users.User, error) {
	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("[SeedAccounts] failed to hash password: %w", err)
	}

	seed := []*users.User{
		{Email: AdminEmail, FirstName: "Ada", LastName: "Admin", Role: users.RoleAdmin, Active: true},
		{Email: HREmail, FirstName: "Helena", LastName: "Recursos", Role: users.RoleHR, Active: true, DNI: "30123456", CUIL: "20-30123456-3", Location: "HQ"},
		{Email: EmployeeEmail, FirstName: "Emilio", LastName: "Empleado", Role: users.RoleEmployee, Active: true, DNI: "35123456", Location: "HQ"},
		{Email: PendingEmail, FirstName: "Pablo", LastName: "Pendiente", Role: users.RoleEmployee, PendingApproval: true},
	}
	for _, u := range seed {
		if err := users.ValidateHRProfile(u); err != nil {
			return nil, fmt.Errorf("[SeedAccounts] invalid profile %s: %w", u.Email, err)
		}
		if existing, err := repo.GetByEmail(u.Email); err == nil {
			u.ID = existing.ID
		}
		u.PasswordHash = hash
		u.CreatedAt = time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
		if err := repo.Upsert(u); err != nil {
			return nil, fmt.Errorf("[SeedAccounts] failed to store %s: %w", u.Email, err)
		}
	}
	return seed, nil
}

// SeedCheckins records a morning of check-ins on date for the active
// accounts: one on time at the office, one late from home.
func SeedCheckins(records *Records, accounts []*users.User, date string) {
	times := []string{"08:52", "09:41"}
	n := 0
	for _, u := range accounts {
		if !u.Active {
			continue
		}
		id, _ := strconv.Atoi(u.ID.String())
		at := times[n%len(times)]
		c := dashboard.Checkin{
			UserID:       id,
			UserName:     u.DisplayName(),
			UserEmail:    u.Email,
			Date:         date,
			CheckinTime:  at,
			LocationType: dashboard.LocationOffice,
			GPSLat:       -34.6037,
			GPSLong:      -58.3816,
			Late:         at > DefaultLateAfter, // both are zero padded
		}
		if c.Late {
			c.LocationType = dashboard.LocationHome
			c.Notes = "Train delayed"
		}
		records.AddCheckin(c)
		n++
	}
}

// SeedAbsences records an approved week of vacation for the employee
// starting a week after date, and a pending sick day for HR on date.
func SeedAbsences(records *Records, accounts []*users.User, date string) {
	day, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return
	}
	ids := make(map[string]int, len(accounts))
	for _, u := range accounts {
		ids[u.Email], _ = strconv.Atoi(u.ID.String())
	}

	approvedAt := day
	records.AddAbsence(dashboard.Absence{
		UserID:     ids[EmployeeEmail],
		StartDate:  day.AddDate(0, 0, 7).Format(time.DateOnly),
		EndDate:    day.AddDate(0, 0, 11).Format(time.DateOnly),
		Type:       dashboard.AbsenceVacation,
		Reason:     "Family trip",
		Status:     dashboard.AbsenceApproved,
		ApprovedBy: ids[AdminEmail],
		ApprovedAt: &approvedAt,
	})
	records.AddAbsence(dashboard.Absence{
		UserID:    ids[HREmail],
		StartDate: date,
		EndDate:   date,
		Type:      dashboard.AbsenceSick,
		Status:    dashboard.AbsencePending,
	})
}
