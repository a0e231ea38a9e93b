package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/edudisplej/loopplan/internal/model"
)

// ErrInvalidCredentials is returned when email/password don't match.
var ErrInvalidCredentials = errors.New("invalid email or password")

// HashPassword uses bcrypt to hash a plaintext password.
func HashPassword(plain string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares a bcrypt hash with the plaintext.
func CheckPassword(hash, plain string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	return err == nil
}

// GetCurrentAdmin retrieves the authenticated admin from the Gin context,
// after JWTMiddleware has run.
func GetCurrentAdmin(c *gin.Context) (*model.Admin, bool) {
	a, exists := c.Get("currentAdmin")
	if !exists {
		return nil, false
	}
	admin, ok := a.(*model.Admin)
	return admin, ok
}
