package users

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// RoleType is the role the backend assigns to a user
type RoleType string

const (
	RoleAdmin    RoleType = "admin"    // Full console access
	RoleHR       RoleType = "hr"       // Human resources staff
	RoleEmployee RoleType = "employee" // Checks in and out, never uses the console
)

// KnownRoles are the roles the backend can assign
var KnownRoles = []RoleType{RoleAdmin, RoleHR, RoleEmployee}

// ID is a backend user identifier. The backend has emitted both numeric and
// string identifiers over time; both decode into the same value.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("user id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

type User struct {
	ID              ID        `json:"id,omitempty"`
	Email           string    `json:"email,omitempty"`
	Name            string    `json:"name,omitempty"`
	FirstName       string    `json:"first_name,omitempty"`
	LastName        string    `json:"last_name,omitempty"`
	Role            RoleType  `json:"role,omitempty"`
	Picture         string    `json:"picture,omitempty"`
	DNI             string    `json:"dni,omitempty"`      // National identity document number
	CUIL            string    `json:"cuil,omitempty"`     // Argentine labour tax id, NN-NNNNNNNN-N
	Location        string    `json:"location,omitempty"` // Office or site the employee reports to
	TeamID          int       `json:"team_id,omitempty"`
	Active          bool      `json:"is_active,omitempty"`
	PendingApproval bool      `json:"pending_approval,omitempty"`
	CreatedAt       time.Time `json:"created_at,omitzero"`
	PasswordHash    string    `json:"-"`
}

// DisplayName returns the best human readable name available for the user.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if strings.TrimSpace(u.Name) != "" {
		return u.Name
	}
	if full := strings.TrimSpace(u.FirstName + " " + u.LastName); full != "" {
		return full
	}
	return u.Email
}

// MergeProfile overlays the non-empty fields of a freshly fetched profile
// onto u. Identity and role are replaced only when the profile carries them.
func (u *User) MergeProfile(profile User) {
	if profile.ID != "" {
		u.ID = profile.ID
	}
	if profile.Email != "" {
		u.Email = profile.Email
	}
	if profile.Role != "" {
		u.Role = profile.Role
	}
	if profile.Name != "" {
		u.Name = profile.Name
	}
	if profile.FirstName != "" {
		u.FirstName = profile.FirstName
	}
	if profile.LastName != "" {
		u.LastName = profile.LastName
	}
	if profile.Picture != "" {
		u.Picture = profile.Picture
	}
	if profile.DNI != "" {
		u.DNI = profile.DNI
	}
	if profile.CUIL != "" {
		u.CUIL = profile.CUIL
	}
	if profile.Location != "" {
		u.Location = profile.Location
	}
	if profile.TeamID != 0 {
		u.TeamID = profile.TeamID
	}
	if !profile.CreatedAt.IsZero() {
		u.CreatedAt = profile.CreatedAt
	}
	u.Active = profile.Active
	u.PendingApproval = profile.PendingApproval
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword checks a password against the user's hash
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}
