package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grad-oversight-api/internal/models"
	appErrors "github.com/noah-isme/grad-oversight-api/pkg/errors"
	"github.com/noah-isme/grad-oversight-api/pkg/response"
)

// RequireRoles only lets through callers holding one of the roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := ClaimsFromContext(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// ScopeProgram resolves the program a caller may see. Admins may pick any program or none;
// everyone else is pinned to the program in their token and may not ask for another one.
func ScopeProgram(c *gin.Context, requested string) (string, error) {
	claims := ClaimsFromContext(c)
	if claims == nil {
		return "", appErrors.ErrUnauthorized
	}
	if claims.Role == models.RoleAdmin || claims.ProgramID == "" {
		return requested, nil
	}
	if requested != "" && requested != claims.ProgramID {
		return "", appErrors.Clone(appErrors.ErrForbidden, "program outside of your scope")
	}
	return claims.ProgramID, nil
}
