package utils

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"
)

var (
	phoneRegex      = regexp.MustCompile(`^\+\d{10,15}$`)
	coordinateRegex = regexp.MustCompile(`^\s*-?\d+(\.\d+)?\s*,\s*-?\d+(\.\d+)?\s*$`)
)

// ValidPhoneNumber reports whether phone is '+' followed by 10 to 15 digits
func ValidPhoneNumber(phone string) bool {
	return phoneRegex.MatchString(phone)
}

// ValidEmail reports whether email is a bare address
func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email, ".")
}

// LooksLikeCoordinates reports whether s is a raw "lat, lon" pair rather than an address
func LooksLikeCoordinates(s string) bool {
	return coordinateRegex.MatchString(s)
}

// PasswordProblems returns the unmet password rules, empty when the password is acceptable.
func PasswordProblems(password string) []string {
	var problems []string
	if len(password) < 8 {
		problems = append(problems, "Password must be at least 8 characters long.")
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(`!@#$%^&*(),.?":{}|<>`, r):
			special = true
		}
	}

	if !upper {
		problems = append(problems, "Password must contain at least one uppercase letter.")
	}
	if !lower {
		problems = append(problems, "Password must contain at least one lowercase letter.")
	}
	if !digit {
		problems = append(problems, "Password must contain at least one digit.")
	}
	if !special {
		problems = append(problems, "Password must contain at least one special character.")
	}
	return problems
}
