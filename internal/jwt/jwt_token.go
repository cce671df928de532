package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
)

var ErrUnauthorized = errors.New("unauthorized")

func roleChar(role Role) string {
	switch role {
	case RoleCitizen:
		return "1"
	case RoleAdmin:
		return "2"
	}
	return ""
}

// CreateToken signs an access token for identity. A zero validUntil means
// DefaultTokenTTL from now.
func CreateToken(identity Identity, role Role, validUntil int64) (string, error) {
	secret, ok := roleSecret(role)
	if !ok {
		return "", fmt.Errorf("no secret configured for role %s", role)
	}
	if identity.ID == "" {
		return "", fmt.Errorf("identity id is empty")
	}

	if validUntil == 0 {
		validUntil = time.Now().Add(DefaultTokenTTL).Unix()
	}

	claims := jwt.MapClaims{
		"id":  identity.ID,
		"exp": validUntil,
	}
	if identity.Email != "" {
		claims["email"] = identity.Email
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}

	return tokenString + roleChar(role), nil
}

// ParseToken validates an access token issued for role. The last character
// of the token names the role it was signed for.
func ParseToken(tokenString string, role Role) (Identity, error) {
	tokenString = strings.TrimSpace(tokenString)
	if len(tokenString) == 0 {
		return Identity{}, fmt.Errorf("%w: token string is empty", ErrUnauthorized)
	}

	if !strings.HasSuffix(tokenString, roleChar(role)) {
		return Identity{}, fmt.Errorf("%w: invalid role character in token", ErrUnauthorized)
	}
	tokenString = tokenString[:len(tokenString)-1]

	secret, ok := roleSecret(role)
	if !ok {
		return Identity{}, fmt.Errorf("no secret configured for role %s", role)
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !token.Valid {
		return Identity{}, fmt.Errorf("%w: token is not valid", ErrUnauthorized)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, fmt.Errorf("%w: claims of unexpected type", ErrUnauthorized)
	}
	if _, ok := claims["exp"]; !ok {
		return Identity{}, fmt.Errorf("%w: token has no expiry", ErrUnauthorized)
	}

	id, _ := claims["id"].(string)
	if id == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}
	email, _ := claims["email"].(string)

	return Identity{ID: id, Email: email, Role: role}, nil
}

// FromBearer strips the "Bearer " prefix from an Authorization header value.
func FromBearer(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
