package auth

import (
	"fmt"
	"net/mail"
	"regexp"
	"time"

	passwordvalidator "github.com/wagslane/go-password-validator"
)

const passwordMinEntropyBits = 30

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{2,16}$`)

func validEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func validatePassword(password string) []string {
	var errs []string
	if len(password) < 6 {
		errs = append(errs, "Password must be at least 6 characters long.")
	}
	if err := passwordvalidator.Validate(password, passwordMinEntropyBits); err != nil {
		errs = append(errs, fmt.Sprintf("Password is not strong enough: %v.", err))
	}
	return errs
}

// registerValidation returns the itemized field errors for a registration
// request; an empty slice means the form is fine.
func registerValidation(req *RegisterRequest) (birthdate time.Time, errs []string) {
	if !usernamePattern.MatchString(req.Username) {
		errs = append(errs, "Username must be 2-16 characters of letters, digits or underscores.")
	}
	if !validEmail(req.Email) {
		errs = append(errs, "Email is invalid.")
	}
	errs = append(errs, validatePassword(req.Password)...)

	birthdate, err := time.Parse("2006-01-02", req.Birthdate)
	if err != nil {
		errs = append(errs, "Birthdate must be in YYYY-MM-DD format.")
	}
	return birthdate, errs
}
