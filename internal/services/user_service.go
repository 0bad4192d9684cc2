package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/notify"

	"github.com/google/uuid"
)

const (
	resetTokenTTL     = 30 * time.Minute
	minPasswordLength = 6
)

// ForgotPasswordMessage is returned for every forgot-password request so the
// response never reveals whether an account exists.
const ForgotPasswordMessage = "If the email is registered, password reset instructions have been sent."

// ErrInvalidResetToken covers unknown, used, and expired tokens alike.
var ErrInvalidResetToken = fmt.Errorf("%w: reset token is invalid or expired", core.ErrInvalidArgument)

// UserStore is the persistence UserService needs.
type UserStore interface {
	CreateUser(ctx context.Context, u core.User) error
	GetUserByID(ctx context.Context, id string) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
	ListUsers(ctx context.Context) ([]core.User, error)
	ReplaceResetToken(ctx context.Context, tok core.PasswordResetToken) (core.PasswordResetToken, error)
	GetResetTokenByHash(ctx context.Context, hash string) (core.PasswordResetToken, error)
	MarkResetTokenUsed(ctx context.Context, id int64, at time.Time) error
	CompletePasswordReset(ctx context.Context, tokenID int64, userID, passwordHash string, at time.Time) error
}

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      core.User `json:"user"`
}

// UserService handles registration, login, and the password reset flow.
type UserService struct {
	store      UserStore
	issuer     *auth.Issuer
	dispatcher notify.Dispatcher
	logger     *log.Logger
	now        func() time.Time
}

func NewUserService(store UserStore, issuer *auth.Issuer, dispatcher notify.Dispatcher, logger *log.Logger) *UserService {
	return &UserService{
		store:      store,
		issuer:     issuer,
		dispatcher: dispatcher,
		logger:     logger.WithComponent(log.ComponentAuth),
		now:        time.Now,
	}
}

func (s *UserService) List(ctx context.Context) ([]core.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id string) (core.User, error) {
	return s.store.GetUserByID(ctx, id)
}

// Register creates an active account. A taken email yields core.ErrConflict.
func (s *UserService) Register(ctx context.Context, fullName, email, password string) (core.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = core.NormalizeEmail(email)

	if fullName == "" {
		return core.User{}, fmt.Errorf("%w: %w", core.ErrInvalidArgument, core.ErrEmptyName)
	}
	if len(fullName) > 100 {
		return core.User{}, fmt.Errorf("%w: %w", core.ErrInvalidArgument, core.ErrNameTooLong)
	}
	if !validEmail(email) {
		return core.User{}, fmt.Errorf("%w: %w", core.ErrInvalidArgument, core.ErrInvalidEmail)
	}
	if len(password) < minPasswordLength {
		return core.User{}, fmt.Errorf("%w: %w", core.ErrInvalidArgument, core.ErrPasswordTooShort)
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return core.User{}, fmt.Errorf("%w: email %s is already registered", core.ErrConflict, email)
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.User{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return core.User{}, err
	}

	u := core.User{
		ID:           uuid.NewString(),
		FullName:     fullName,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
		IsActive:     true,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return core.User{}, err
	}

	s.logger.InfoContext(ctx, "User registered", log.FieldUserID, u.ID)
	return u, nil
}

// Login verifies credentials and issues a signed token. Unknown accounts,
// inactive accounts, and wrong passwords all return core.ErrUnauthorized.
func (s *UserService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	u, err := s.store.GetUserByEmail(ctx, core.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return LoginResult{}, fmt.Errorf("%w: invalid email or password", core.ErrUnauthorized)
		}
		return LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}
	if !u.IsActive || !auth.VerifyPassword(u.PasswordHash, password) {
		s.logger.WarnContext(ctx, "Login rejected", log.FieldUserID, u.ID)
		return LoginResult{}, fmt.Errorf("%w: invalid email or password", core.ErrUnauthorized)
	}

	token, expiresAt, err := s.issuer.Issue(u)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, ExpiresAt: expiresAt, User: u}, nil
}

// ForgotPassword starts a reset for an active account. It returns nil for
// unknown or inactive emails. When the notification cannot be handed off the
// new token is burned and the error returned.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.store.GetUserByEmail(ctx, core.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if !u.IsActive {
		return nil
	}

	token, hash, err := auth.NewResetToken()
	if err != nil {
		return err
	}
	now := s.now().UTC()
	stored, err := s.store.ReplaceResetToken(ctx, core.PasswordResetToken{
		UserID:    u.ID,
		TokenHash: hash,
		ExpiresAt: now.Add(resetTokenTTL),
		CreatedAt: now,
	})
	if err != nil {
		return err
	}

	msg := notify.PasswordReset{
		Email:     u.Email,
		FullName:  u.FullName,
		Token:     token,
		ExpiresAt: stored.ExpiresAt,
	}
	if err := s.dispatcher.DispatchPasswordReset(ctx, msg); err != nil {
		if markErr := s.store.MarkResetTokenUsed(ctx, stored.ID, s.now().UTC()); markErr != nil {
			err = errors.Join(err, markErr)
		}
		log.LogError(ctx, "Password reset notification failed", err,
			log.ComponentAuth, log.OpNotify, log.ErrorTypeUpstream,
			log.NewFields().WithUser(u.ID))
		return fmt.Errorf("send password reset: %w", err)
	}

	s.logger.InfoContext(ctx, "Password reset requested", log.FieldUserID, u.ID)
	return nil
}

// ResetPassword redeems token and stores the new password.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword, confirmPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidResetToken
	}
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("%w: %w", core.ErrInvalidArgument, core.ErrPasswordTooShort)
	}
	if newPassword != confirmPassword {
		return fmt.Errorf("%w: passwords do not match", core.ErrInvalidArgument)
	}

	now := s.now().UTC()
	tok, err := s.store.GetResetTokenByHash(ctx, auth.HashToken(token))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	if !tok.Active(now) {
		return ErrInvalidResetToken
	}

	u, err := s.store.GetUserByID(ctx, tok.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	if !u.IsActive {
		return ErrInvalidResetToken
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.CompletePasswordReset(ctx, tok.ID, u.ID, hash, now); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Password reset completed", log.FieldUserID, u.ID)
	return nil
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
