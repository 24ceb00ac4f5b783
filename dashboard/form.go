package dashboard

import (
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/hr-console/internal/errors"
)

// CheckinForm is the body of a check-in create or update.
type CheckinForm struct {
	Date           string  `json:"date"`
	Time           string  `json:"time"`
	UserID         int     `json:"user_id"`
	LocationType   string  `json:"location_type"`
	LocationDetail string  `json:"location_detail,omitempty"`
	GPSLat         float64 `json:"gps_lat"`
	GPSLong        float64 `json:"gps_long"`
	LateReason     string  `json:"late_reason,omitempty"`
	Notes          string  `json:"notes,omitempty"`
}

// Validate reports every invalid field at once. The result wraps
// ErrInvalidInput.
func (f CheckinForm) Validate() error {
	var errs []error
	if _, err := time.Parse(time.DateOnly, f.Date); err != nil {
		errs = append(errs, fmt.Errorf("date must be YYYY-MM-DD, got %q", f.Date))
	}
	if _, err := time.Parse("15:04", f.Time); err != nil {
		errs = append(errs, fmt.Errorf("time must be HH:MM, got %q", f.Time))
	}
	if f.UserID <= 0 {
		errs = append(errs, errors.New("user_id must be a positive number"))
	}
	if f.LocationType != LocationHome && f.LocationType != LocationOffice {
		errs = append(errs, fmt.Errorf("location_type must be %q or %q", LocationHome, LocationOffice))
	}
	if f.GPSLat < -90 || f.GPSLat > 90 {
		errs = append(errs, fmt.Errorf("gps_lat %v out of range", f.GPSLat))
	}
	if f.GPSLong < -180 || f.GPSLong > 180 {
		errs = append(errs, fmt.Errorf("gps_long %v out of range", f.GPSLong))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, errors.Join(errs...))
}
