package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nsvirk/financeapi/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var identity = models.Identity{
	UserID:        "4d7c6f0e-8c1f-4b37-9b2e-2f2b0b8a1f11",
	Username:      "jdoe",
	FirstName:     "John",
	BankAccount:   "1000200030",
	RoutingNumber: "021000021",
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)

	ok, err := CheckPassword(hash, "s3cret!")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = CheckPassword("not-a-bcrypt-hash", "s3cret!")
	assert.Error(t, err)
}

func TestTokenIssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, "financeapi", time.Hour)

	token, expiresAt, err := issuer.Issue(identity)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 2*time.Second)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, identity, claims.Identity())
	assert.Equal(t, "financeapi", claims.Issuer)
}

func TestTokenExpired(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer := NewTokenIssuer(testSecret, "financeapi", time.Hour).WithClock(func() time.Time { return now })

	token, _, err := issuer.Issue(identity)
	require.NoError(t, err)

	later := issuer.WithClock(func() time.Time { return now.Add(61 * time.Minute) })
	_, err = later.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenWrongSecretOrIssuer(t *testing.T) {
	token, _, err := NewTokenIssuer(testSecret, "financeapi", time.Hour).Issue(identity)
	require.NoError(t, err)

	_, err = NewTokenIssuer("ffffffffffffffffffffffffffffffff", "financeapi", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewTokenIssuer(testSecret, "someone-else", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		UserID: identity.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "financeapi",
			Audience:  jwt.ClaimStrings{TokenAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewTokenIssuer(testSecret, "financeapi", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = NewTokenIssuer(testSecret, "financeapi", time.Hour).Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRequiresExpiry(t *testing.T) {
	claims := Claims{
		UserID: identity.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   "financeapi",
			Audience: jwt.ClaimStrings{TokenAudience},
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewTokenIssuer(testSecret, "financeapi", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
