package auth

import "context"

// LoginResult is what a primary or step-up login yields. Either User and
// Token are set, or TwoFactorRequired is true and both are empty: the
// backend accepted the primary credential but demands a second factor.
type LoginResult struct {
	User              *User
	Token             string
	TwoFactorRequired bool
}

// RegisterInput carries the registration form.
type RegisterInput struct {
	Name                 string
	Email                string
	Phone                string
	Password             string
	PasswordConfirmation string
	Role                 Role
}

// ResetRequestInput asks for a password-reset delivery. At least one of
// Email or Phone must be set.
type ResetRequestInput struct {
	Email string
	Phone string
}

// ResetDelivery acknowledges a reset request. DebugCode is only populated
// by non-production backends that echo the code instead of delivering it.
type ResetDelivery struct {
	Message   string
	DebugCode string
}

// ResetInput carries the reset-confirmation form.
type ResetInput struct {
	Identifier           string
	Code                 string
	Password             string
	PasswordConfirmation string
}

// TwoFactorProvisioning is the enrollment payload: the shared secret plus
// the otpauth URL to render as a QR code.
type TwoFactorProvisioning struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
}

// Service is the full set of authentication operations. Each operation is
// a composition of one gateway call (two for the 2FA step-up pair) with a
// fixed request/response shape. Implementations never catch-and-hide
// gateway errors; callers map them to field-level or root-level UI state.
//
// Contract highlights:
//   - Login returns TwoFactorRequired instead of a user when the backend
//     signals step-up.
//   - CurrentUser returns (nil, nil) when the credential is missing or
//     rejected; an invalid session is an answer, not an error.
//   - Logout is best-effort on the server side; a transport failure is the
//     caller's cue to clear local state anyway.
//   - Inputs are validated locally before any network call; violations
//     surface as field-level validation errors with no request issued.
type Service interface {
	Login(ctx context.Context, identifier, password string) (*LoginResult, error)
	VerifyTwoFactorLogin(ctx context.Context, identifier, password, code string) (*LoginResult, error)
	Register(ctx context.Context, in RegisterInput) (*LoginResult, error)
	RequestPasswordReset(ctx context.Context, in ResetRequestInput) (*ResetDelivery, error)
	ResetPassword(ctx context.Context, in ResetInput) (string, error)
	CurrentUser(ctx context.Context) (*User, error)
	Logout(ctx context.Context) error
	EnableTwoFactor(ctx context.Context) (*TwoFactorProvisioning, error)
	ConfirmTwoFactor(ctx context.Context, code string) error
	DisableTwoFactor(ctx context.Context) error
}
