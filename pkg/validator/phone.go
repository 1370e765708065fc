package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidLength indicates the number is not 8 digits long
	ErrInvalidLength = errors.New("phone number must be exactly 8 digits")

	// ErrInvalidPrefix indicates the number is not a Bolivian mobile number
	ErrInvalidPrefix = errors.New("phone number must start with 6 or 7")

	// ErrInvalidFormat indicates the number contains invalid characters
	ErrInvalidFormat = errors.New("phone number can only contain digits")

	// ErrEmptyPhone indicates the number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")
)

// phoneRegex matches digits only
var phoneRegex = regexp.MustCompile(`^\d+$`)

// PhoneValidator validates Bolivian mobile numbers. Mobile numbers are
// 8 digits starting with 6 or 7; the country code is 591.
type PhoneValidator struct{}

// NewPhoneValidator creates a new phone validator instance
func NewPhoneValidator() *PhoneValidator {
	return &PhoneValidator{}
}

// Validate validates a Bolivian mobile number.
// Accepts formats like 71234567, 7123 4567, +591 71234567, or 591-7123-4567.
// Returns the sanitized number (8 digits) and an error if invalid.
func (v *PhoneValidator) Validate(phone string) (string, error) {
	if phone == "" {
		return "", ErrEmptyPhone
	}

	sanitized := v.Sanitize(phone)

	if !phoneRegex.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}

	if len(sanitized) != 8 {
		return "", ErrInvalidLength
	}

	if !v.IsValidPrefix(sanitized) {
		return "", ErrInvalidPrefix
	}

	return sanitized, nil
}

// Sanitize removes separators and the 591 country code if present
func (v *PhoneValidator) Sanitize(phone string) string {
	phone = strings.ReplaceAll(phone, " ", "")
	phone = strings.ReplaceAll(phone, "-", "")
	phone = strings.ReplaceAll(phone, "(", "")
	phone = strings.ReplaceAll(phone, ")", "")
	phone = strings.ReplaceAll(phone, "+", "")
	phone = strings.ReplaceAll(phone, ".", "")

	if strings.HasPrefix(phone, "00591") && len(phone) == 13 {
		phone = phone[5:]
	}
	if strings.HasPrefix(phone, "591") && len(phone) == 11 {
		phone = phone[3:]
	}

	return phone
}

// IsValidPrefix checks that the number starts with a mobile digit
func (v *PhoneValidator) IsValidPrefix(phone string) bool {
	if len(phone) == 0 {
		return false
	}
	return phone[0] == '6' || phone[0] == '7'
}

// Format formats a phone number in the standard display format: XXXX XXXX
func (v *PhoneValidator) Format(phone string) (string, error) {
	sanitized, err := v.Validate(phone)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s %s", sanitized[0:4], sanitized[4:8]), nil
}

// FormatInternational formats a phone number with the country code: +591 XXXXXXXX
func (v *PhoneValidator) FormatInternational(phone string) (string, error) {
	sanitized, err := v.Validate(phone)
	if err != nil {
		return "", err
	}

	return "+591 " + sanitized, nil
}

// IsValid is a convenience method that returns true if phone is valid
func (v *PhoneValidator) IsValid(phone string) bool {
	_, err := v.Validate(phone)
	return err == nil
}
