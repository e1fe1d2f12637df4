package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nsvirk/financeapi/internal/models"
)

// TokenAudience is the audience of every issued token
const TokenAudience = "financeapi-clients"

// ErrInvalidToken is returned for any token that fails verification
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the bearer token claims
type Claims struct {
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	FirstName     string `json:"first_name"`
	BankAccount   string `json:"bank_account,omitempty"`
	RoutingNumber string `json:"routing_number,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns the identity carried by the claims
func (c *Claims) Identity() models.Identity {
	return models.Identity{
		UserID:        c.UserID,
		Username:      c.Username,
		FirstName:     c.FirstName,
		BankAccount:   c.BankAccount,
		RoutingNumber: c.RoutingNumber,
	}
}

// TokenIssuer mints and verifies HS256 bearer tokens
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a token issuer
func NewTokenIssuer(secret, issuer string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock returns a copy of the issuer reading time from now
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	cp := *i
	cp.now = now
	return &cp
}

// Issue signs a token for the identity and returns it with its expiry
func (i *TokenIssuer) Issue(identity models.Identity) (string, time.Time, error) {
	now := i.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(i.ttl)

	claims := Claims{
		UserID:        identity.UserID,
		Username:      identity.Username,
		FirstName:     identity.FirstName,
		BankAccount:   identity.BankAccount,
		RoutingNumber: identity.RoutingNumber,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %v", err)
	}
	return signed, expiresAt, nil
}

// Verify parses a token and checks its signature, algorithm, expiry, issuer and audience
func (i *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
