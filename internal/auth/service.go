package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/timerenting/internal/models"
	"github.com/sudo-init-do/timerenting/internal/store"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)

const minPasswordLength = 6

// Granter records the starting balance of a new account inside the sign-up
// transaction.
type Granter interface {
	Grant(tx store.Tx, u *models.User, amount int64) error
}

// Welcomer is told about every new account after it commits.
type Welcomer interface {
	Welcome(ctx context.Context, u models.User) error
}

// Service owns sign-up, login and password changes.
type Service struct {
	store          store.Store
	ledger         Granter
	issuer         *Issuer
	initialBalance int64
	welcomer       Welcomer
	log            *slog.Logger
}

func NewService(st store.Store, ledger Granter, issuer *Issuer, initialBalance int64) *Service {
	return &Service{
		store:          st,
		ledger:         ledger,
		issuer:         issuer,
		initialBalance: initialBalance,
		log:            slog.With("component", "auth"),
	}
}

// WithWelcomer sets the hook called after a successful sign-up.
func (s *Service) WithWelcomer(w Welcomer) *Service {
	s.welcomer = w
	return s
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
}

// Signup creates the account and grants the starting balance in one transaction.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*TokenResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if !usernamePattern.MatchString(req.Username) {
		return nil, models.NewValidationError("username must be 3-32 letters, digits, '.', '_' or '-'")
	}
	if len(req.Password) < minPasswordLength {
		return nil, models.NewValidationError("password must be at least 6 characters")
	}
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return nil, models.NewValidationError("invalid email address")
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashed),
		CreatedAt:    time.Now(),
	}
	err = s.store.Update(ctx, func(tx store.Tx) error {
		if err := tx.CreateUser(u); err != nil {
			return err
		}
		return s.ledger.Grant(tx, u, s.initialBalance)
	})
	if errors.Is(err, store.ErrConflict) {
		return nil, models.NewConflictError("username already taken")
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("user signed up", "username", u.Username, "initial_balance", u.TimeCredits)

	if s.welcomer != nil {
		if err := s.welcomer.Welcome(ctx, *u); err != nil {
			s.log.Warn("welcome notification failed", "username", u.Username, "error", err)
		}
	}
	return s.token(u.Username)
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	var u *models.User
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		u, err = tx.GetUser(strings.TrimSpace(req.Username))
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.NewUnauthenticatedError("invalid credentials")
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, models.NewUnauthenticatedError("invalid credentials")
	}
	return s.token(u.Username)
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Service) ChangePassword(ctx context.Context, sess Session, req ChangePasswordRequest) error {
	if len(req.NewPassword) < minPasswordLength {
		return models.NewValidationError("password must be at least 6 characters")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.store.Update(ctx, func(tx store.Tx) error {
		u, err := tx.GetUser(sess.Username)
		if errors.Is(err, store.ErrNotFound) {
			return models.NewNotFoundError("user")
		}
		if err != nil {
			return err
		}
		if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.CurrentPassword)); err != nil {
			return models.NewUnauthenticatedError("current password is incorrect")
		}
		u.PasswordHash = string(hashed)
		return tx.UpdateUser(u)
	})
}

// Me returns the caller's own account.
func (s *Service) Me(ctx context.Context, sess Session) (*models.User, error) {
	var u *models.User
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		u, err = tx.GetUser(sess.Username)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.NewNotFoundError("user")
	}
	return u, err
}

func (s *Service) token(username string) (*TokenResponse, error) {
	signed, exp, err := s.issuer.Issue(username)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{Token: signed, ExpiresAt: exp, Username: username}, nil
}
