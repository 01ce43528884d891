package auth

import (
	"context"
	"encoding/json"

	"github.com/mbelkin/authfront/internal/client/api"
)

// httpService implements Service over the API gateway. Each method is one
// request with a fixed wire shape; all error normalization already
// happened below, in the gateway.
type httpService struct {
	api *api.Client
}

// NewHTTPService binds the operations to a gateway client.
func NewHTTPService(c *api.Client) Service {
	return &httpService{api: c}
}

// Wire shapes. The session payload is shared by login, step-up login and
// register: the backend answers all three with a user plus token, or with
// the step-up marker alone.
type sessionPayload struct {
	Token             string `json:"token"`
	User              *User  `json:"user"`
	TwoFactorRequired bool   `json:"two_factor_required"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type twoFactorLoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	Code       string `json:"code"`
}

type registerRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email,omitempty"`
	Phone                string `json:"phone,omitempty"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	Role                 Role   `json:"role,omitempty"`
}

type resetRequestRequest struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type resetRequestPayload struct {
	Code string `json:"code,omitempty"`
}

type resetPasswordRequest struct {
	Identifier           string `json:"identifier"`
	Code                 string `json:"code"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type codeRequest struct {
	Code string `json:"code"`
}

func (s *httpService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	if err := validateLogin(identifier, password); err != nil {
		return nil, err
	}

	var payload sessionPayload
	if _, err := s.api.Post(ctx, "/login", loginRequest{Identifier: identifier, Password: password}, &payload); err != nil {
		return nil, err
	}
	return payload.result(), nil
}

func (s *httpService) VerifyTwoFactorLogin(ctx context.Context, identifier, password, code string) (*LoginResult, error) {
	if err := validateLogin(identifier, password); err != nil {
		return nil, err
	}
	if err := validateTwoFactorCode(code); err != nil {
		return nil, err
	}

	var payload sessionPayload
	req := twoFactorLoginRequest{Identifier: identifier, Password: password, Code: code}
	if _, err := s.api.Post(ctx, "/2fa/login", req, &payload); err != nil {
		return nil, err
	}
	return payload.result(), nil
}

func (s *httpService) Register(ctx context.Context, in RegisterInput) (*LoginResult, error) {
	if err := validateRegister(in); err != nil {
		return nil, err
	}

	req := registerRequest{
		Name:                 in.Name,
		Email:                in.Email,
		Phone:                in.Phone,
		Password:             in.Password,
		PasswordConfirmation: in.PasswordConfirmation,
		Role:                 in.Role,
	}
	var payload sessionPayload
	if _, err := s.api.Post(ctx, "/register", req, &payload); err != nil {
		return nil, err
	}
	return payload.result(), nil
}

func (s *httpService) RequestPasswordReset(ctx context.Context, in ResetRequestInput) (*ResetDelivery, error) {
	if err := validateResetRequest(in); err != nil {
		return nil, err
	}

	// Data is optional here: production backends acknowledge with a bare
	// message, non-production ones echo the code.
	env, err := s.api.Post(ctx, "/request-password-reset", resetRequestRequest(in), nil)
	if err != nil {
		return nil, err
	}
	delivery := &ResetDelivery{Message: env.Message}
	if len(env.Data) > 0 {
		var payload resetRequestPayload
		if err := json.Unmarshal(env.Data, &payload); err == nil {
			delivery.DebugCode = payload.Code
		}
	}
	return delivery, nil
}

func (s *httpService) ResetPassword(ctx context.Context, in ResetInput) (string, error) {
	if err := validateReset(in); err != nil {
		return "", err
	}

	env, err := s.api.Post(ctx, "/reset-password", resetPasswordRequest(in), nil)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// CurrentUser resolves the stored credential to a user. A missing or
// rejected credential answers (nil, nil): the session is simply anonymous.
// Transport and server failures still propagate so the caller can avoid
// settling on a wrong answer.
func (s *httpService) CurrentUser(ctx context.Context) (*User, error) {
	var u User
	if _, err := s.api.Get(ctx, "/user", &u); err != nil {
		if api.IsUnauthorized(err) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (s *httpService) Logout(ctx context.Context) error {
	_, err := s.api.Post(ctx, "/logout", nil, nil)
	return err
}

func (s *httpService) EnableTwoFactor(ctx context.Context) (*TwoFactorProvisioning, error) {
	var p TwoFactorProvisioning
	if _, err := s.api.Post(ctx, "/user/2fa/enable", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *httpService) ConfirmTwoFactor(ctx context.Context, code string) error {
	if err := validateTwoFactorCode(code); err != nil {
		return err
	}
	_, err := s.api.Post(ctx, "/auth/2fa/verify", codeRequest{Code: code}, nil)
	return err
}

func (s *httpService) DisableTwoFactor(ctx context.Context) error {
	_, err := s.api.Post(ctx, "/user/2fa/disable", nil, nil)
	return err
}

func (p sessionPayload) result() *LoginResult {
	if p.TwoFactorRequired {
		return &LoginResult{TwoFactorRequired: true}
	}
	return &LoginResult{User: p.User, Token: p.Token}
}
