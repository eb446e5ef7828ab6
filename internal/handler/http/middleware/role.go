package middleware

import (
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"github.com/worktrackhq/worktrack-backend-go/internal/handler/http/response"
	"github.com/worktrackhq/worktrack-backend-go/internal/pkg/jwt"
)

// RequireManager requires the manager role
func RequireManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.Forbidden(w, "Manager access required")
			return
		}

		roleStr, ok := claims["role"].(string)
		if !ok {
			response.Forbidden(w, "Manager access required")
			return
		}

		if jwt.Role(roleStr) != jwt.RoleManager {
			response.Forbidden(w, "Manager access required")
			return
		}

		next.ServeHTTP(w, r)
	})
}
