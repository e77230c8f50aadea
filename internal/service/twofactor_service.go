package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/toolvault/toolvault/internal/domain"
	"github.com/toolvault/toolvault/internal/observability"
	"github.com/toolvault/toolvault/internal/repository"
	"github.com/toolvault/toolvault/internal/security"
)

// ErrDeliveryFailed signals that the mail transport rejected the message.
// The login or resend call that triggered the send fails with it; the code
// row itself stays behind and is superseded by the next issue.
var ErrDeliveryFailed = errors.New("verification code delivery failed")

const verificationCodeDigits = 6

type TwoFactorService struct {
	codeRepo repository.VerificationCodeRepository
	mailer   Mailer
	logger   *slog.Logger
	codeTTL  time.Duration
}

func NewTwoFactorService(codeRepo repository.VerificationCodeRepository, mailer Mailer, logger *slog.Logger, codeTTL time.Duration) *TwoFactorService {
	return &TwoFactorService{codeRepo: codeRepo, mailer: mailer, logger: logger, codeTTL: codeTTL}
}

// SendVerificationCode issues a fresh code for (user, purpose) and dispatches
// exactly one email carrying it. Issuing invalidates any earlier unused code
// for the same purpose.
func (s *TwoFactorService) SendVerificationCode(ctx context.Context, user *domain.User, purpose, requestIP, userAgent string) (*domain.VerificationCode, error) {
	code, err := security.NewNumericCode(verificationCodeDigits)
	if err != nil {
		return nil, fmt.Errorf("generate verification code: %w", err)
	}

	record := &domain.VerificationCode{
		UserID:    user.ID,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(s.codeTTL),
		IPAddress: requestIP,
		UserAgent: userAgent,
	}
	if err := s.codeRepo.Create(record); err != nil {
		return nil, fmt.Errorf("persist verification code: %w", err)
	}

	if err := s.mailer.Send(ctx, Mail{
		To:      user.Email,
		Subject: s.subjectFor(purpose),
		Body:    s.bodyFor(user.Name, code),
	}); err != nil {
		s.logger.ErrorContext(ctx, "verification code delivery failed",
			"user_id", user.ID, "purpose", purpose, "error", err)
		observability.RecordCodeIssued(ctx, purpose, "delivery_failed")
		return nil, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	observability.RecordCodeIssued(ctx, purpose, "sent")
	s.logger.InfoContext(ctx, "verification code issued",
		"user_id", user.ID, "purpose", purpose, "expires_at", record.ExpiresAt)
	return record, nil
}

// VerifyCode redeems a submitted code. It reports false for every failure
// shape (no match, expired, already used) without distinguishing them, and
// marks the matched record used so a replay can never succeed.
func (s *TwoFactorService) VerifyCode(ctx context.Context, userID uint, submittedCode, purpose string) (bool, error) {
	record, err := s.codeRepo.FindUnused(userID, submittedCode, purpose)
	if err != nil {
		if errors.Is(err, repository.ErrVerificationCodeNotFound) {
			observability.RecordCodeVerified(ctx, purpose, "no_match")
			return false, nil
		}
		return false, err
	}
	if !record.Valid(time.Now()) {
		observability.RecordCodeVerified(ctx, purpose, "expired")
		return false, nil
	}
	if err := s.codeRepo.MarkUsed(record.ID); err != nil {
		if errors.Is(err, repository.ErrVerificationCodeNotFound) {
			// Lost a redeem race; the winner already consumed it.
			observability.RecordCodeVerified(ctx, purpose, "replayed")
			return false, nil
		}
		return false, err
	}
	observability.RecordCodeVerified(ctx, purpose, "success")
	return true, nil
}

// CleanupExpiredCodes is the administrative sweep behind the admin CLI.
func (s *TwoFactorService) CleanupExpiredCodes(ctx context.Context) (int64, error) {
	count, err := s.codeRepo.PurgeExpired(time.Now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.InfoContext(ctx, "expired verification codes purged", "count", count)
	}
	return count, nil
}

// LatestUnusedIssuedAt supports the resend cooldown: it reports when the
// currently live code for (user, purpose) was issued.
func (s *TwoFactorService) LatestUnusedIssuedAt(userID uint, purpose string) (time.Time, bool, error) {
	record, err := s.codeRepo.FindLatestUnused(userID, purpose)
	if err != nil {
		if errors.Is(err, repository.ErrVerificationCodeNotFound) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return record.CreatedAt, true, nil
}

func (s *TwoFactorService) subjectFor(purpose string) string {
	if purpose == domain.PurposeLogin {
		return "Login Verification Code"
	}
	return "Verification Code"
}

func (s *TwoFactorService) bodyFor(name, code string) string {
	minutes := int(s.codeTTL.Minutes())
	return fmt.Sprintf(
		"Hello %s,\n\nYour verification code is: %s\n\nThis code will expire in %d minutes.\n\nIf you didn't request this code, please ignore this email.\n\nBest regards,\nThe ToolVault Team\n",
		name, code, minutes,
	)
}
