package security

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"

	"github.com/k-chan22/DeteXTB-System/internal/core/domain"
)

// GenerateNumericCode returns a uniformly random numeric string of the given
// length. Used for the mailed reset codes; collisions against previously
// issued codes are not checked.
func GenerateNumericCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	digits := make([]byte, length)
	for i, b := range buf {
		digits[i] = '0' + (b % 10)
	}

	return string(digits), nil
}

// SessionClaims augments registered claims with the clinic role context the
// dashboard shell needs.
type SessionClaims struct {
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// SessionTokenIssuer signs short-lived HS256 session tokens handed to the UI
// after a successful login.
type SessionTokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionTokenIssuer constructs an issuer; the secret must be non-empty.
func NewSessionTokenIssuer(secret, issuer string, ttl time.Duration) (*SessionTokenIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("session token secret is required")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	return &SessionTokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock overrides the internal clock, used in tests.
func (i *SessionTokenIssuer) WithClock(clock func() time.Time) {
	if clock != nil {
		i.now = clock
	}
}

// Issue signs a session token for the authenticated user.
func (i *SessionTokenIssuer) Issue(user domain.UserRecord) (string, error) {
	if user.ID == "" {
		return "", fmt.Errorf("user id is required")
	}

	now := i.now().UTC()
	claims := SessionClaims{
		Username: user.Username,
		Role:     string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	return signed, nil
}

// Parse validates a session token and returns its claims.
func (i *SessionTokenIssuer) Parse(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithIssuer(i.issuer), jwt.WithTimeFunc(func() time.Time { return i.now() }))
	if err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}
	if parsed == nil || !parsed.Valid {
		return nil, fmt.Errorf("invalid session token")
	}

	return claims, nil
}
