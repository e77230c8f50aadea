package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/toolvault/toolvault/internal/domain"
	"github.com/toolvault/toolvault/internal/observability"
	"github.com/toolvault/toolvault/internal/repository"
	"github.com/toolvault/toolvault/internal/security"
)

var (
	// ErrInvalidCredentials deliberately covers both unknown email and wrong
	// password; the response never reveals which check failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDeactivated = errors.New("account is deactivated")
	// ErrCodeInvalid covers not-found, expired, used and mismatched codes
	// without differentiation.
	ErrCodeInvalid     = errors.New("verification code is invalid or expired")
	ErrUserNotFound    = errors.New("user not found")
	ErrResendThrottled = errors.New("verification code was requested too recently")
)

// PendingLogin is the handle returned after the password check passes but
// before 2FA completes. No session exists yet.
type PendingLogin struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
}

// Profile is the authenticated user projection: the legacy single role name
// rides alongside the full many-to-many role-name list.
type Profile struct {
	ID    uint     `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Role  *string  `json:"role"`
	Roles []string `json:"roles"`
}

// AuthResult is a completed login: a bearer token plus the caller's profile.
type AuthResult struct {
	User  Profile `json:"user"`
	Token string  `json:"token"`
}

type AuthService struct {
	userRepo       repository.UserRepository
	twoFactor      *TwoFactorService
	tokenSvc       *TokenService
	logger         *slog.Logger
	resendCooldown time.Duration
}

func NewAuthService(userRepo repository.UserRepository, twoFactor *TwoFactorService, tokenSvc *TokenService, logger *slog.Logger, resendCooldown time.Duration) *AuthService {
	return &AuthService{
		userRepo:       userRepo,
		twoFactor:      twoFactor,
		tokenSvc:       tokenSvc,
		logger:         logger,
		resendCooldown: resendCooldown,
	}
}

// Login checks primary credentials and, on success, dispatches a login code.
// The deactivation check runs only after the credential match so an inactive
// account is indistinguishable from a wrong password until the caller proves
// they hold the password.
func (s *AuthService) Login(ctx context.Context, email, password, requestIP, userAgent string) (*PendingLogin, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			observability.RecordAuthLogin(ctx, "failure")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	ok, err := security.VerifyPassword(user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		observability.RecordAuthLogin(ctx, "failure")
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		observability.RecordAuthLogin(ctx, "deactivated")
		return nil, ErrAccountDeactivated
	}

	if _, err := s.twoFactor.SendVerificationCode(ctx, user, domain.PurposeLogin, requestIP, userAgent); err != nil {
		return nil, err
	}
	observability.RecordAuthLogin(ctx, "pending_2fa")
	return &PendingLogin{UserID: user.ID, Email: user.Email}, nil
}

// Verify2FA redeems a login code and, on success, issues the bearer session.
func (s *AuthService) Verify2FA(ctx context.Context, userID uint, submittedCode, requestIP, userAgent string) (*AuthResult, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrCodeInvalid
		}
		return nil, err
	}
	ok, err := s.twoFactor.VerifyCode(ctx, user.ID, submittedCode, domain.PurposeLogin)
	if err != nil {
		return nil, err
	}
	if !ok {
		observability.RecordAuthLogin(ctx, "code_rejected")
		return nil, ErrCodeInvalid
	}

	token, err := s.tokenSvc.Issue(user, userAgent, requestIP)
	if err != nil {
		return nil, err
	}
	observability.RecordAuthLogin(ctx, "success")
	s.logger.InfoContext(ctx, "login completed", "user_id", user.ID)
	return &AuthResult{User: profileFrom(user), Token: token}, nil
}

// Resend2FA issues a fresh login code, subject to a server-side cooldown
// against mailbox flooding.
func (s *AuthService) Resend2FA(ctx context.Context, userID uint, requestIP, userAgent string) error {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if s.resendCooldown > 0 {
		issuedAt, live, err := s.twoFactor.LatestUnusedIssuedAt(user.ID, domain.PurposeLogin)
		if err != nil {
			return err
		}
		if live && time.Since(issuedAt) < s.resendCooldown {
			return ErrResendThrottled
		}
	}
	_, err = s.twoFactor.SendVerificationCode(ctx, user, domain.PurposeLogin, requestIP, userAgent)
	return err
}

// Logout revokes exactly the presented token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.tokenSvc.Revoke(token); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "session revoked")
	return nil
}

// ProfileByID backs GET /me.
func (s *AuthService) ProfileByID(_ context.Context, userID uint) (*Profile, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	p := profileFrom(user)
	return &p, nil
}

func profileFrom(user *domain.User) Profile {
	return Profile{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.LegacyRoleName(),
		Roles: user.RoleNames(),
	}
}
