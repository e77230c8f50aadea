package service

import (
	"errors"
	"time"

	"github.com/toolvault/toolvault/internal/domain"
	"github.com/toolvault/toolvault/internal/repository"
	"github.com/toolvault/toolvault/internal/security"
)

var ErrSessionInvalid = errors.New("session is invalid or revoked")

// TokenService issues bearer tokens and keeps one session row per token so
// a single presented token can be revoked without touching the user's other
// sessions. The JWT gives a cheap reject on garbage; the session row is the
// revocation authority.
type TokenService struct {
	jwtMgr      *security.JWTManager
	sessionRepo repository.SessionRepository
	pepper      string
	sessionTTL  time.Duration
}

func NewTokenService(jwtMgr *security.JWTManager, sessionRepo repository.SessionRepository, pepper string, sessionTTL time.Duration) *TokenService {
	return &TokenService{jwtMgr: jwtMgr, sessionRepo: sessionRepo, pepper: pepper, sessionTTL: sessionTTL}
}

func (s *TokenService) Issue(user *domain.User, ua, ip string) (string, error) {
	token, err := s.jwtMgr.SignAccessToken(user.ID, user.RoleNames(), s.sessionTTL)
	if err != nil {
		return "", err
	}
	session := &domain.Session{
		UserID:    user.ID,
		TokenHash: security.HashSessionToken(token, s.pepper),
		UserAgent: ua,
		IP:        ip,
		ExpiresAt: time.Now().Add(s.sessionTTL),
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return "", err
	}
	return token, nil
}

// Validate parses the token and confirms its session row is live.
func (s *TokenService) Validate(token string) (*security.Claims, error) {
	claims, err := s.jwtMgr.ParseAccessToken(token)
	if err != nil {
		return nil, ErrSessionInvalid
	}
	hash := security.HashSessionToken(token, s.pepper)
	if _, err := s.sessionRepo.FindValidByHash(hash, time.Now()); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	return claims, nil
}

// Revoke retires exactly the presented token. Unknown and already-revoked
// tokens succeed; logout is idempotent.
func (s *TokenService) Revoke(token string) error {
	hash := security.HashSessionToken(token, s.pepper)
	return s.sessionRepo.RevokeByHash(hash, time.Now())
}
