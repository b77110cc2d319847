package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"

	apperrors "github.com/spec-kit/support-agent/pkg/util/errorutil"
)

// PushVerifier validates bearer tokens on inbound push deliveries.
// An empty secret disables verification, for local runs and emulators.
type PushVerifier struct {
	secret   []byte
	audience string
}

// NewPushVerifier builds a verifier for push delivery tokens.
func NewPushVerifier(secret, audience string) *PushVerifier {
	return &PushVerifier{secret: []byte(secret), audience: audience}
}

// Enabled reports whether verification is configured.
func (v *PushVerifier) Enabled() bool {
	return len(v.secret) > 0
}

// Verify validates the signature, expiry and audience of a push token.
func (v *PushVerifier) Verify(tokenStr string) error {
	parsed, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		return err
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return errors.New("invalid token claims")
	}
	if v.audience != "" {
		if err := verifyAudience(claims, v.audience); err != nil {
			return err
		}
	}
	return nil
}

func verifyAudience(claims *jwt.RegisteredClaims, audience string) error {
	for _, aud := range claims.Audience {
		if aud == audience {
			return nil
		}
	}
	return errors.New("audience mismatch")
}

// IssueToken signs a push delivery token. Used by tests and by local
// publishers driving the webhook without a real push broker.
func (v *PushVerifier) IssueToken(ttl time.Duration) (string, error) {
	claims := &jwt.RegisteredClaims{
		Audience:  jwt.ClaimStrings{v.audience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Middleware enforces push token verification on webhook routes. When
// verification is disabled the handler passes every request through.
func (v *PushVerifier) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !v.Enabled() {
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return apperrors.NewUnauthorized("missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return apperrors.NewUnauthorized("invalid authorization header")
		}

		if err := v.Verify(parts[1]); err != nil {
			return apperrors.NewUnauthorized("invalid push token")
		}
		return c.Next()
	}
}
