// Package auth defines the authentication operations of the client and the
// identity model they exchange with the backend.
package auth

// Role is a closed enumeration of account roles.
type Role string

const (
	RoleStandard   Role = "standard"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super-admin"
)

// User is the identity record as the backend reports it. The client treats
// it as immutable: it is replaced wholesale on every successful
// login/register/fetch and never patched field by field.
type User struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email,omitempty"`
	Phone            string `json:"phone,omitempty"`
	Role             Role   `json:"role"`
	TwoFactorEnabled bool   `json:"two_factor_enabled,omitempty"`
}

// WithTwoFactor returns a copy of u with the two-factor flag set. The
// session store uses it to replace the cached record after a 2FA
// enable/disable round-trip, keeping the record itself immutable.
func (u User) WithTwoFactor(enabled bool) User {
	u.TwoFactorEnabled = enabled
	return u
}
