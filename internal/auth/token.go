package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the bearer token payload. The user id claim is named userId to
// match the tokens issued by the account service.
type Claims struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 bearer tokens signed with a shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates token and returns the caller's identity.
func (v *Verifier) Verify(token string) (AuthContext, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return AuthContext{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID <= 0 {
		return AuthContext{}, fmt.Errorf("%w: missing userId", ErrInvalidToken)
	}
	return AuthContext{UserID: claims.UserID, Email: claims.Email}, nil
}

// Issue signs a token for userID valid for ttl. Used by the CLI to mint
// development tokens.
func (v *Verifier) Issue(userID int64, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
