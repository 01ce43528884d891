package devserver

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mbelkin/authfront/internal/common"
)

// issueToken signs an HS256 token for the account. The jti doubles as the
// session key so individual tokens can be invalidated on logout.
func issueToken(userID int64, secret []byte, issuer string, ttl time.Duration) (token, jti string, err error) {
	now := time.Now()
	jti = uuid.NewString()

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ID:        jti,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})

	token, err = t.SignedString(secret)
	if err != nil {
		return "", "", err
	}
	return token, jti, nil
}

// parseToken verifies the signature and expiry and returns the subject
// account ID with the jti.
func parseToken(tokenString string, secret []byte) (userID int64, jti string, err error) {
	claims := &jwt.RegisteredClaims{}

	t, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, "", err
	}
	if !t.Valid {
		return 0, "", common.ErrInvalidToken
	}

	userID, err = strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, "", common.ErrInvalidToken
	}
	return userID, claims.ID, nil
}
