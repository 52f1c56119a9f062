package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const (
	MinPasswordLength = 6
	// bcrypt ignores everything past 72 bytes
	MaxPasswordLength = 72
	MaxNameLength     = 100
	MaxTitleLength    = 200
	MaxTextLength     = 1000
)

// Error is a single field validation failure
type Error struct {
	Field   string
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Collect aggregates field checks; nil checks are ignored and nil is returned
// when all pass. errors.As on the result yields the first failure.
func Collect(checks ...error) error {
	var result *multierror.Error
	result = multierror.Append(result, checks...)
	return result.ErrorOrNil()
}

// Failures returns every field failure inside err
func Failures(err error) []Error {
	list := []error{err}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		list = merr.Errors
	}

	var out []Error
	for _, e := range list {
		var v Error
		if errors.As(e, &v) {
			out = append(out, v)
		}
	}
	return out
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return Error{Field: "email", Message: "Email is required"}
	}
	if len(email) > 255 || !emailRegex.MatchString(email) {
		return Error{Field: "email", Message: "Invalid email format"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return Error{Field: "password", Message: "Password is required"}
	}
	if len(password) < MinPasswordLength {
		return Error{Field: "password", Message: fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)}
	}
	if len(password) > MaxPasswordLength {
		return Error{Field: "password", Message: fmt.Sprintf("Password must be at most %d bytes", MaxPasswordLength)}
	}
	return nil
}

// ValidateName checks a required display name such as a family name
func ValidateName(field, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return Error{Field: field, Message: fmt.Sprintf("%s is required", label(field))}
	}
	return ValidateOptionalName(field, name)
}

// ValidateOptionalName checks a name that may be left blank
func ValidateOptionalName(field, name string) error {
	if utf8.RuneCountInString(strings.TrimSpace(name)) > MaxNameLength {
		return Error{Field: field, Message: fmt.Sprintf("%s must be at most %d characters", label(field), MaxNameLength)}
	}
	return nil
}

// ValidateItemTitle checks the title of a shopping item
func ValidateItemTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return Error{Field: "title", Message: "Title is required"}
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return Error{Field: "title", Message: fmt.Sprintf("Title must be at most %d characters", MaxTitleLength)}
	}
	return nil
}

// ValidateText checks an optional free-text item field
func ValidateText(field, value string) error {
	if utf8.RuneCountInString(value) > MaxTextLength {
		return Error{Field: field, Message: fmt.Sprintf("%s must be at most %d characters", label(field), MaxTextLength)}
	}
	return nil
}

func label(field string) string {
	switch field {
	case "fullName":
		return "Full name"
	case "":
		return "Value"
	}
	return strings.ToUpper(field[:1]) + field[1:]
}
