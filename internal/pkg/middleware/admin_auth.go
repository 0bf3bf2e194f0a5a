package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"golang.org/x/crypto/bcrypt"

	"github.com/washplan/washplan/internal/pkg/env"
)

// AdminAuthMiddleware protects operator endpoints with HTTP basic auth.
// ADMIN_PASSWORD_HASH holds a bcrypt hash; ADMIN_PASSWORD is a plaintext
// fallback for local development.
func AdminAuthMiddleware() fiber.Handler {
	username := env.GetEnv("ADMIN_USERNAME", "admin")
	passwordHash := env.GetEnv("ADMIN_PASSWORD_HASH", "")
	plainPassword := env.GetEnv("ADMIN_PASSWORD", "")

	return basicauth.New(basicauth.Config{
		Authorizer: func(user, pass string) bool {
			if subtle.ConstantTimeCompare([]byte(user), []byte(username)) != 1 {
				return false
			}
			if passwordHash != "" {
				return bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(pass)) == nil
			}
			if plainPassword != "" {
				return subtle.ConstantTimeCompare([]byte(pass), []byte(plainPassword)) == 1
			}
			return false
		},
	})
}
