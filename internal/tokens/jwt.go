package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpiryFromJWT returns the exp claim of a JWT access token without verifying
// its signature. ok is false for opaque tokens and JWTs without exp.
func ExpiryFromJWT(raw string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
