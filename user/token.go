package user

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is how long issued credentials stay valid.
const TokenTTL = 24 * time.Hour

// GenerateJWT issues a signed HS256 token carrying the user id claim.
func GenerateJWT(userID, email string, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"exp":     time.Now().Add(TokenTTL).Unix(),
	})
	return token.SignedString(secret)
}
