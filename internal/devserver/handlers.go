package devserver

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pquerna/otp/totp"

	"github.com/mbelkin/authfront/internal/client/auth"
)

type credentialsRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	Code       string `json:"code"`
}

type registerRequest struct {
	Name                 string    `json:"name"`
	Email                string    `json:"email"`
	Phone                string    `json:"phone"`
	Password             string    `json:"password"`
	PasswordConfirmation string    `json:"password_confirmation"`
	Role                 auth.Role `json:"role"`
}

type resetRequestRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
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

type sessionPayload struct {
	Token             string     `json:"token,omitempty"`
	User              *auth.User `json:"user,omitempty"`
	TwoFactorRequired bool       `json:"two_factor_required,omitempty"`
}

func (s *Server) issueSession(w http.ResponseWriter, a *Account, message string) {
	token, jti, err := issueToken(a.ID, []byte(s.cfg.JWTSecret), s.cfg.Issuer, s.cfg.TokenTTL)
	if err != nil {
		s.log.Error(context.Background(), "token signing failed", "error", err)
		s.respondRootErrors(w, http.StatusInternalServerError, "internal error", []string{"could not issue a session token"})
		return
	}
	s.store.AddSession(jti, a.ID)
	s.respond(w, http.StatusOK, envelope{
		Message: message,
		Data:    sessionPayload{Token: token, User: a.View()},
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !s.decode(w, r, &req) {
		return
	}

	if !s.limiter.allow("login:" + req.Identifier) {
		s.respondRootErrors(w, http.StatusTooManyRequests,
			"too many login attempts, please wait before retrying", nil)
		return
	}

	a, err := s.store.Authenticate(req.Identifier, req.Password)
	if err != nil {
		s.respondRootErrors(w, http.StatusUnprocessableEntity, "login failed",
			[]string{"invalid email/phone or password"})
		return
	}

	if a.TwoFactorEnabled() {
		s.respond(w, http.StatusOK, envelope{
			Message: "two-factor code required",
			Data:    sessionPayload{TwoFactorRequired: true},
		})
		return
	}

	s.issueSession(w, a, "logged in")
}

func (s *Server) handleTwoFactorLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !s.decode(w, r, &req) {
		return
	}

	if !s.limiter.allow("login:" + req.Identifier) {
		s.respondRootErrors(w, http.StatusTooManyRequests,
			"too many login attempts, please wait before retrying", nil)
		return
	}

	a, err := s.store.Authenticate(req.Identifier, req.Password)
	if err != nil {
		s.respondRootErrors(w, http.StatusUnprocessableEntity, "login failed",
			[]string{"invalid email/phone or password"})
		return
	}
	if !a.TwoFactorEnabled() || !totp.Validate(req.Code, a.TOTPSecret) {
		s.respondFieldErrors(w, map[string][]string{"code": {"is invalid"}})
		return
	}

	s.issueSession(w, a, "logged in")
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decode(w, r, &req) {
		return
	}

	fields := map[string][]string{}
	if req.Name == "" {
		fields["name"] = append(fields["name"], "is required")
	}
	if req.Email == "" && req.Phone == "" {
		fields["email"] = append(fields["email"], "email or phone is required")
	}
	if problems := auth.PasswordProblems(req.Password); len(problems) > 0 {
		fields["password"] = append(fields["password"], problems...)
	}
	if req.Password != req.PasswordConfirmation {
		fields["password_confirmation"] = append(fields["password_confirmation"], "does not match password")
	}
	if len(fields) > 0 {
		s.respondFieldErrors(w, fields)
		return
	}

	role := req.Role
	if role == "" {
		role = auth.RoleStandard
	}

	a, err := s.store.CreateAccount(req.Name, req.Email, req.Phone, req.Password, role)
	switch err {
	case nil:
	case errEmailTaken:
		s.respondFieldErrors(w, map[string][]string{"email": {"is already registered"}})
		return
	case errPhoneTaken:
		s.respondFieldErrors(w, map[string][]string{"phone": {"is already registered"}})
		return
	default:
		s.respondRootErrors(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	s.issueSession(w, a, "account created")
}

type resetCodePayload struct {
	Code string `json:"code,omitempty"`
}

func (s *Server) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	var req resetRequestRequest
	if !s.decode(w, r, &req) {
		return
	}

	identifier := req.Email
	if identifier == "" {
		identifier = req.Phone
	}

	// The acknowledgement never reveals whether the account exists.
	ack := envelope{Message: "If the account exists, a reset code was sent."}

	a, err := s.store.FindByIdentifier(identifier)
	if err == nil {
		code := uuid.NewString()
		s.store.SetResetCode(a.ID, code)
		if !s.cfg.Production {
			ack.Data = resetCodePayload{Code: code}
		}
	}

	s.respond(w, http.StatusOK, ack)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !s.decode(w, r, &req) {
		return
	}

	if problems := auth.PasswordProblems(req.Password); len(problems) > 0 {
		s.respondFieldErrors(w, map[string][]string{"password": problems})
		return
	}
	if req.Password != req.PasswordConfirmation {
		s.respondFieldErrors(w, map[string][]string{"password_confirmation": {"does not match password"}})
		return
	}

	a, err := s.store.FindByIdentifier(req.Identifier)
	if err != nil || !s.store.ConsumeResetCode(a.ID, req.Code) {
		s.respondFieldErrors(w, map[string][]string{"code": {"is invalid or expired"}})
		return
	}
	if err := s.store.SetPassword(a.ID, req.Password); err != nil {
		s.respondRootErrors(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	s.respond(w, http.StatusOK, envelope{Message: "Password updated. You can now log in."})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, envelope{Data: accountFrom(r).View()})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.store.RemoveSession(jtiFrom(r))
	s.respond(w, http.StatusOK, envelope{Message: "logged out"})
}

func (s *Server) handleEnableTwoFactor(w http.ResponseWriter, r *http.Request) {
	a := accountFrom(r)

	accountName := a.Email
	if accountName == "" {
		accountName = a.Phone
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.cfg.Issuer,
		AccountName: accountName,
	})
	if err != nil {
		s.respondRootErrors(w, http.StatusInternalServerError, "internal error", nil)
		return
	}
	if err := s.store.BeginTOTPEnrollment(a.ID, key.Secret()); err != nil {
		s.respondRootErrors(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	s.respond(w, http.StatusOK, envelope{
		Message: "scan the code and confirm",
		Data: auth.TwoFactorProvisioning{
			Secret:     key.Secret(),
			OTPAuthURL: key.URL(),
		},
	})
}

func (s *Server) handleConfirmTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !s.decode(w, r, &req) {
		return
	}

	a := accountFrom(r)
	if a.PendingTOTPSecret == "" || !totp.Validate(req.Code, a.PendingTOTPSecret) {
		s.respondFieldErrors(w, map[string][]string{"code": {"is invalid"}})
		return
	}
	if err := s.store.ConfirmTOTPEnrollment(a.ID); err != nil {
		s.respondRootErrors(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	s.respond(w, http.StatusOK, envelope{Message: "two-factor authentication enabled"})
}

func (s *Server) handleDisableTwoFactor(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DisableTOTP(accountFrom(r).ID); err != nil {
		s.respondRootErrors(w, http.StatusInternalServerError, "internal error", nil)
		return
	}
	s.respond(w, http.StatusOK, envelope{Message: "two-factor authentication disabled"})
}

type presencePayload struct {
	Channel string `json:"channel"`
	Count   int    `json:"count"`
}

// handlePresence reports the online-user count for a channel. Every
// channel answers the same live-session count; the dev backend has no
// notion of per-channel membership.
func (s *Server) handlePresence(w http.ResponseWriter, r *http.Request) {
	channel := mux.Vars(r)["channel"]
	s.respond(w, http.StatusOK, envelope{
		Data: presencePayload{Channel: channel, Count: s.store.SessionCount()},
	})
}
