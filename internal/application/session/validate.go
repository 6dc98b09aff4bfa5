package session

import (
	"regexp"
	"strings"

	"master-o-quizz/internal/infrastructure/apiclient"
)

const minPasswordLen = 8

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail 檢查 local@domain.tld 格式。
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidateLogin 登入前的本機檢查。
func ValidateLogin(in apiclient.LoginInput) error {
	if strings.TrimSpace(in.Email) == "" {
		return apiclient.Validation("Email is required")
	}
	if !ValidEmail(in.Email) {
		return apiclient.Validation("Please enter a valid email address")
	}
	if strings.TrimSpace(in.Password) == "" {
		return apiclient.Validation("Password is required")
	}
	return nil
}

// ValidateSignup 註冊前的本機檢查。
func ValidateSignup(in apiclient.SignupInput) error {
	if strings.TrimSpace(in.FullName) == "" {
		return apiclient.Validation("Full name is required")
	}
	if strings.TrimSpace(in.Email) == "" {
		return apiclient.Validation("Email is required")
	}
	if !ValidEmail(in.Email) {
		return apiclient.Validation("Please enter a valid email address")
	}
	if strings.TrimSpace(in.Password) == "" {
		return apiclient.Validation("Password is required")
	}
	if len(in.Password) < minPasswordLen {
		return apiclient.Validation("Password must be at least 8 characters long")
	}
	return nil
}
