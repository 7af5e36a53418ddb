// utils/validator.go - Input validation
package utils

import (
	"regexp"
	"strings"
)

var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRegex    = regexp.MustCompile(`^\+?[0-9]{10,13}$`)
	postcodeRegex = regexp.MustCompile(`^(?i)[A-Z]{1,2}[0-9][A-Z0-9]? ?[0-9][A-Z]{2}$`)
	cscsRegex     = regexp.MustCompile(`^[0-9]{6,12}$`)
)

// ValidateEmail checks if email is valid
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidatePassword checks password strength
func ValidatePassword(password string) (bool, string) {
	if len(password) < 8 {
		return false, "Password must be at least 8 characters"
	}

	return true, ""
}

// NormalizePhone strips spaces, dashes and brackets from a phone number.
func NormalizePhone(phone string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))
}

// ValidatePhone accepts UK and international numbers of 10-13 digits.
func ValidatePhone(phone string) bool {
	return phoneRegex.MatchString(NormalizePhone(phone))
}

// ValidatePostcode checks the shape of a UK postcode.
func ValidatePostcode(postcode string) bool {
	return postcodeRegex.MatchString(strings.TrimSpace(postcode))
}

// ValidateCSCSNumber checks a CSCS card registration number.
func ValidateCSCSNumber(number string) bool {
	return cscsRegex.MatchString(strings.ReplaceAll(number, " ", ""))
}

// SanitizeInput removes potentially harmful characters
func SanitizeInput(input string) string {
	// Remove leading/trailing spaces
	input = strings.TrimSpace(input)

	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	return input
}
