package auth

import (
	"regexp"
	"unicode"

	"github.com/mbelkin/authfront/internal/client/api"
)

var codePattern = regexp.MustCompile(`^[0-9]{6}$`)

// ValidateCode reports whether code is exactly six ASCII digits. Malformed
// codes are rejected locally; no network call is made for them.
func ValidateCode(code string) bool {
	return codePattern.MatchString(code)
}

// PasswordProblems lists the policy rules the candidate password violates:
// at least 8 characters with one uppercase, one lowercase, one digit and
// one symbol. An empty result means the password passes. The backend
// re-validates authoritatively regardless; this is a fast-fail for the
// form.
func PasswordProblems(password string) []string {
	var problems []string

	if len(password) < 8 {
		problems = append(problems, "must be at least 8 characters")
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	if !hasUpper {
		problems = append(problems, "must contain an uppercase letter")
	}
	if !hasLower {
		problems = append(problems, "must contain a lowercase letter")
	}
	if !hasDigit {
		problems = append(problems, "must contain a digit")
	}
	if !hasSymbol {
		problems = append(problems, "must contain a symbol")
	}
	return problems
}

// fieldErrors accumulates per-field messages and converts to the gateway's
// validation error once complete.
type fieldErrors map[string][]string

func (f fieldErrors) add(field string, messages ...string) {
	if len(messages) > 0 {
		f[field] = append(f[field], messages...)
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return api.ValidationError(f)
}

func validateLogin(identifier, password string) error {
	f := fieldErrors{}
	if identifier == "" {
		f.add("identifier", "is required")
	}
	if password == "" {
		f.add("password", "is required")
	}
	return f.err()
}

func validateTwoFactorCode(code string) error {
	f := fieldErrors{}
	if !ValidateCode(code) {
		f.add("code", "must be exactly 6 digits")
	}
	return f.err()
}

func validateNewPassword(f fieldErrors, password, confirmation string) {
	f.add("password", PasswordProblems(password)...)
	if password != confirmation {
		f.add("password_confirmation", "does not match password")
	}
}

func validateRegister(in RegisterInput) error {
	f := fieldErrors{}
	if in.Name == "" {
		f.add("name", "is required")
	}
	if in.Email == "" && in.Phone == "" {
		f.add("email", "email or phone is required")
	}
	validateNewPassword(f, in.Password, in.PasswordConfirmation)
	return f.err()
}

func validateResetRequest(in ResetRequestInput) error {
	f := fieldErrors{}
	if in.Email == "" && in.Phone == "" {
		f.add("email", "email or phone is required")
	}
	return f.err()
}

func validateReset(in ResetInput) error {
	f := fieldErrors{}
	if in.Identifier == "" {
		f.add("identifier", "is required")
	}
	if in.Code == "" {
		f.add("code", "is required")
	}
	validateNewPassword(f, in.Password, in.PasswordConfirmation)
	return f.err()
}
