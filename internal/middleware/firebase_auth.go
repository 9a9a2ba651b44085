package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/devlinkhq/backend/internal/repositories"
	"github.com/labstack/echo/v4"
)

// FirebaseAuthMiddleware creates an Echo middleware to verify Firebase ID
// tokens. It stores the Firebase UID under "firebaseUID" and, when a local
// profile exists for that UID, the numeric user ID under "userID". A missing
// profile leaves "userID" unset so the profile-creation route still works.
func FirebaseAuthMiddleware(authClient *auth.Client, userRepo repositories.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header is missing")
			}

			tokenParts := strings.Split(authHeader, " ")
			if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header must be in Bearer format")
			}

			idToken := tokenParts[1]

			// Verify the ID token
			token, err := authClient.VerifyIDToken(c.Request().Context(), idToken)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, fmt.Sprintf("Invalid or expired ID token: %v", err))
			}

			c.Set("firebaseUID", token.UID)

			if user, err := userRepo.GetUserByFirebaseUID(token.UID); err == nil {
				c.Set("userID", user.ID)
			}

			return next(c)
		}
	}
}
