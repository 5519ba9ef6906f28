package auth

import (
	"regexp"
	"strings"
)

// DefaultRole is assigned to self-registered accounts
const DefaultRole = "employee"

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// Registration is the input of Store.Register
type Registration struct {
	Name     string
	Email    string
	Username string
	Password string
	Role     string
}

// ValidationError is a local rejection raised before any network call
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Normalize trims fields, lower-cases the email and fills the default role.
// The password is kept verbatim.
func (r Registration) Normalize() Registration {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Username = strings.TrimSpace(r.Username)
	r.Role = strings.TrimSpace(r.Role)
	if r.Role == "" {
		r.Role = DefaultRole
	}
	return r
}

// Validate returns the first problem found, in form order.
func (r Registration) Validate() error {
	if err := ValidateName(r.Name); err != nil {
		return err
	}
	if err := ValidateEmail(r.Email); err != nil {
		return err
	}
	if err := ValidateUsername(r.Username); err != nil {
		return err
	}
	return ValidatePassword(r.Password)
}

func ValidateName(s string) error {
	if strings.TrimSpace(s) == "" {
		return &ValidationError{Field: "name", Message: "Name is required"}
	}
	return nil
}

func ValidateEmail(s string) error {
	if !emailPattern.MatchString(s) {
		return &ValidationError{Field: "email", Message: "Valid email is required"}
	}
	return nil
}

func ValidateUsername(s string) error {
	if len([]rune(strings.TrimSpace(s))) < 3 {
		return &ValidationError{Field: "username", Message: "Username must be at least 3 chars"}
	}
	return nil
}

func ValidatePassword(s string) error {
	if len([]rune(s)) < 6 {
		return &ValidationError{Field: "password", Message: "Password must be at least 6 chars"}
	}
	return nil
}
