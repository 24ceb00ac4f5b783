package users

import (
	"errors"
	"fmt"
	"net/mail"
	"slices"
	"strings"
)

var cuilWeights = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}

// ValidateHRProfile checks the fields HR staff fill in on the employee form.
// All problems are reported together.
func ValidateHRProfile(u *User) error {
	var errs []error

	if _, err := mail.ParseAddress(u.Email); err != nil || !strings.Contains(u.Email, "@") {
		errs = append(errs, fmt.Errorf("email %q is not a valid address", u.Email))
	}
	if !slices.Contains(KnownRoles, u.Role) {
		errs = append(errs, fmt.Errorf("role %q is not one of admin, hr, employee", u.Role))
	}
	if u.DNI != "" {
		if err := ValidateDNI(u.DNI); err != nil {
			errs = append(errs, err)
		}
	}
	if u.CUIL != "" {
		if err := ValidateCUIL(u.CUIL); err != nil {
			errs = append(errs, err)
		}
	}
	if u.TeamID < 0 {
		errs = append(errs, fmt.Errorf("team id must not be negative"))
	}
	return errors.Join(errs...)
}

// ValidateDNI accepts 7 or 8 digits, with or without thousands dots.
func ValidateDNI(dni string) error {
	digits := strings.ReplaceAll(dni, ".", "")
	if len(digits) < 7 || len(digits) > 8 || !allDigits(digits) {
		return fmt.Errorf("dni %q must have 7 or 8 digits", dni)
	}
	return nil
}

// ValidateCUIL checks the NN-NNNNNNNN-N layout and the mod 11 check digit.
func ValidateCUIL(cuil string) error {
	parts := strings.Split(cuil, "-")
	if len(parts) != 3 || len(parts[0]) != 2 || len(parts[1]) != 8 || len(parts[2]) != 1 {
		return fmt.Errorf("cuil %q must look like NN-NNNNNNNN-N", cuil)
	}
	digits := parts[0] + parts[1] + parts[2]
	if !allDigits(digits) {
		return fmt.Errorf("cuil %q must only contain digits", cuil)
	}

	sum := 0
	for i, w := range cuilWeights {
		sum += int(digits[i]-'0') * w
	}
	check := 11 - sum%11
	switch check {
	case 11:
		check = 0
	case 10:
		check = 9
	}
	if int(digits[10]-'0') != check {
		return fmt.Errorf("cuil %q has an invalid check digit", cuil)
	}
	return nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
