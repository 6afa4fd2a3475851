package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const (
	maxTitleLength   = 200
	maxMessageLength = 5000
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateRequired checks that a field is not blank
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{Field: field, Message: field + " is required"}
	}
	return nil
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateTitle checks a worksheet title
func ValidateTitle(title string) error {
	if err := ValidateRequired("title", title); err != nil {
		return err
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return ValidationError{Field: "title", Message: fmt.Sprintf("title must be at most %d characters", maxTitleLength)}
	}
	return nil
}

// ValidateMessage checks a contact message body
func ValidateMessage(message string) error {
	if err := ValidateRequired("message", message); err != nil {
		return err
	}
	if utf8.RuneCountInString(message) > maxMessageLength {
		return ValidationError{Field: "message", Message: fmt.Sprintf("message must be at most %d characters", maxMessageLength)}
	}
	return nil
}

// ValidateRating checks that a rating is present and within [min, max].
// A zero rating is out of range, not missing.
func ValidateRating(rating *int, min, max int) error {
	if rating == nil {
		return ValidationError{Field: "rating", Message: "rating is required"}
	}
	if *rating < min || *rating > max {
		return ValidationError{Field: "rating", Message: fmt.Sprintf("rating must be between %d and %d", min, max)}
	}
	return nil
}
