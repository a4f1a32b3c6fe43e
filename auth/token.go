package auth

import (
	"community-pulse/errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RolePublisher  = "publisher"
	RoleSubscriber = "subscriber"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole reports whether the claims carry role.
func (c *CustomClaims) HasRole(role string) bool {
	return c != nil && slices.Contains(c.Roles, role)
}

// Tokens signs and validates HS256 tokens with a shared secret.
type Tokens struct {
	key    []byte
	issuer string
}

func NewTokens(secret, issuer string) *Tokens {
	return &Tokens{key: []byte(secret), issuer: issuer}
}

// GenerateToken creates a signed JWT for a specific user.
func (t *Tokens) GenerateToken(userID string, roles []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID: userID,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    t.issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
}

// ValidateToken parses and validates the signature and expiration of a JWT string.
// A token without user id is refused: it could not be bound to a user room.
func (t *Tokens) ValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{},
		func(token *jwt.Token) (interface{}, error) { return t.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, errors.ErrInvalidToken
	}
	return claims, nil
}

// UnverifiedClaims reads the claims of a token without checking its signature.
// Subscribers use it to learn their own user id; the server never trusts it.
func UnverifiedClaims(tokenString string) (*CustomClaims, error) {
	claims := &CustomClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return nil, errors.ErrInvalidToken
	}
	return claims, nil
}

// BearerToken extracts the token from the Authorization header, or from the
// token query parameter since browsers cannot set headers on websocket upgrades.
func BearerToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return "", errors.ErrUnauthorized
		}
		return strings.TrimSpace(token), nil
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return "", errors.ErrUnauthorized
}
