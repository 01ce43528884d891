package devserver

import (
	"errors"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/mbelkin/authfront/internal/client/auth"
)

var (
	errNotFound      = errors.New("devserver: account not found")
	errEmailTaken    = errors.New("devserver: email already registered")
	errPhoneTaken    = errors.New("devserver: phone already registered")
	errBadCredential = errors.New("devserver: wrong password")
)

// Account is the server-side identity record. The TOTP secret lives in two
// stages: PendingTOTPSecret during enrollment, TOTPSecret once a code has
// confirmed it.
type Account struct {
	ID                int64
	Name              string
	Email             string
	Phone             string
	Role              auth.Role
	PasswordHash      []byte
	TOTPSecret        string
	PendingTOTPSecret string
}

// TwoFactorEnabled reports whether a confirmed TOTP secret exists.
func (a *Account) TwoFactorEnabled() bool { return a.TOTPSecret != "" }

// View converts the record to the wire-facing user shape.
func (a *Account) View() *auth.User {
	return &auth.User{
		ID:               a.ID,
		Name:             a.Name,
		Email:            a.Email,
		Phone:            a.Phone,
		Role:             a.Role,
		TwoFactorEnabled: a.TwoFactorEnabled(),
	}
}

// Store holds all server state behind one mutex: accounts, live sessions
// keyed by token ID, and outstanding password-reset codes keyed by account.
type Store struct {
	mu         sync.Mutex
	nextID     int64
	accounts   map[int64]*Account
	byEmail    map[string]int64
	byPhone    map[string]int64
	sessions   map[string]int64
	resetCodes map[int64]string
}

func NewStore() *Store {
	return &Store{
		nextID:     1,
		accounts:   make(map[int64]*Account),
		byEmail:    make(map[string]int64),
		byPhone:    make(map[string]int64),
		sessions:   make(map[string]int64),
		resetCodes: make(map[int64]string),
	}
}

// CreateAccount registers a new account with a bcrypt-hashed password.
// Email and phone are unique across accounts.
func (s *Store) CreateAccount(name, email, phone, password string, role auth.Role) (*Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	email = normalizeEmail(email)
	if email != "" {
		if _, taken := s.byEmail[email]; taken {
			return nil, errEmailTaken
		}
	}
	if phone != "" {
		if _, taken := s.byPhone[phone]; taken {
			return nil, errPhoneTaken
		}
	}

	a := &Account{
		ID:           s.nextID,
		Name:         name,
		Email:        email,
		Phone:        phone,
		Role:         role,
		PasswordHash: hash,
	}
	s.nextID++
	s.accounts[a.ID] = a
	if email != "" {
		s.byEmail[email] = a.ID
	}
	if phone != "" {
		s.byPhone[phone] = a.ID
	}
	return a, nil
}

// Authenticate resolves an identifier (email or phone) and checks the
// password. Unknown identifier and wrong password both come back as
// errBadCredential so login responses cannot be used to probe accounts.
func (s *Store) Authenticate(identifier, password string) (*Account, error) {
	a, err := s.FindByIdentifier(identifier)
	if err != nil {
		return nil, errBadCredential
	}
	if bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(password)) != nil {
		return nil, errBadCredential
	}
	return a, nil
}

// FindByIdentifier resolves an email or phone to its account.
func (s *Store) FindByIdentifier(identifier string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byEmail[normalizeEmail(identifier)]; ok {
		return s.accounts[id], nil
	}
	if id, ok := s.byPhone[identifier]; ok {
		return s.accounts[id], nil
	}
	return nil, errNotFound
}

// Get returns the account by ID.
func (s *Store) Get(id int64) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, errNotFound
	}
	return a, nil
}

// SetPassword rehashes and replaces the account's password.
func (s *Store) SetPassword(id int64, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return errNotFound
	}
	a.PasswordHash = hash
	return nil
}

// BeginTOTPEnrollment stages a secret; it does not affect logins until
// confirmed.
func (s *Store) BeginTOTPEnrollment(id int64, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return errNotFound
	}
	a.PendingTOTPSecret = secret
	return nil
}

// ConfirmTOTPEnrollment promotes the pending secret to active.
func (s *Store) ConfirmTOTPEnrollment(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return errNotFound
	}
	if a.PendingTOTPSecret == "" {
		return errNotFound
	}
	a.TOTPSecret = a.PendingTOTPSecret
	a.PendingTOTPSecret = ""
	return nil
}

// DisableTOTP clears both the active and any pending secret.
func (s *Store) DisableTOTP(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return errNotFound
	}
	a.TOTPSecret = ""
	a.PendingTOTPSecret = ""
	return nil
}

// AddSession records a live token by its jti.
func (s *Store) AddSession(jti string, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[jti] = userID
}

// RemoveSession invalidates a token by its jti.
func (s *Store) RemoveSession(jti string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, jti)
}

// SessionUser resolves a live jti to its account ID. A signed but
// invalidated token (logout) no longer resolves.
func (s *Store) SessionUser(jti string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.sessions[jti]
	return id, ok
}

// SessionCount reports the number of live sessions. The presence channel
// serves it as the online-user count.
func (s *Store) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// SetResetCode stores the outstanding reset code for an account,
// replacing any previous one.
func (s *Store) SetResetCode(id int64, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetCodes[id] = code
}

// ConsumeResetCode checks and burns the reset code for an account. A code
// is single-use whether or not the subsequent password write succeeds.
func (s *Store) ConsumeResetCode(id int64, code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.resetCodes[id]
	if !ok || stored != code {
		return false
	}
	delete(s.resetCodes, id)
	return true
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
