package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	chat_errors "chatsphere/pkg/errors"
)

// SessionClaims is the token payload issued by the remote auth service. The
// subject is the current user id.
type SessionClaims struct {
	FullName string `json:"full_name,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks session tokens locally so the daemon can reject a bad
// token before any remote call is made.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates the token and returns its claims.
func (v *Verifier) Verify(tokenString string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, chat_errors.ErrUnauthorized
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", chat_errors.ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, chat_errors.ErrUnauthorized
	}
	return claims, nil
}

// ExtractBearer pulls the token out of an Authorization header value.
func ExtractBearer(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
