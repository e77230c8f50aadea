package security

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carries the caller's identity and role-name set. Roles are embedded
// so the authorization gate never needs a database round-trip; revocation is
// handled by the session row keyed on the token hash.
type Claims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, errors.New("invalid token subject")
	}
	return uint(id), nil
}

type JWTManager struct {
	issuer   string
	audience string
	secret   []byte
}

func NewJWTManager(issuer, audience, secret string) *JWTManager {
	return &JWTManager{issuer: issuer, audience: audience, secret: []byte(secret)}
}

func (m *JWTManager) SignAccessToken(userID uint, roles []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			// Unique per token so two sign-ins inside the same second still
			// produce distinct tokens and distinct session hashes.
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *JWTManager) ParseAccessToken(raw string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
	)
	token, err := parser.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
