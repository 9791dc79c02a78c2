package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-engine/internal/response"
	"github.com/stemsi/exstem-engine/internal/service"
)

// ContextKeyClaims is the Gin context key for the verified identity.
const ContextKeyClaims = "claims"

// tokenSource says where a bearer token may be read from.
type tokenSource int

const (
	// Authorization header, falling back to ?token= for EventSource clients.
	fromHeaderOrQuery tokenSource = iota
	// ?token= only. Browsers cannot set headers on a WebSocket handshake.
	fromQuery
)

// RequireStudentJWT admits candidates only.
func RequireStudentJWT(authService *service.AuthService) gin.HandlerFunc {
	return authenticate(authService, fromHeaderOrQuery, service.RoleStudent, response.ErrStudentAccessOnly)
}

// RequireAdminJWT admits exam operators only. The monitor SSE stream relies
// on the query fallback.
func RequireAdminJWT(authService *service.AuthService) gin.HandlerFunc {
	return authenticate(authService, fromHeaderOrQuery, service.RoleAdmin, response.ErrAdminAccessOnly)
}

// RequireStudentWSAuth guards the attempt stream upgrade.
func RequireStudentWSAuth(authService *service.AuthService) gin.HandlerFunc {
	return authenticate(authService, fromQuery, service.RoleStudent, response.ErrStudentAccessOnly)
}

func authenticate(authService *service.AuthService, src tokenSource, role service.Role, denied response.ErrCode) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c, src)
		if raw == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		claims, err := authService.ValidateToken(raw)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}
		if claims.Role != role {
			response.AbortFail(c, http.StatusForbidden, denied)
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

func bearerToken(c *gin.Context, src tokenSource) string {
	if src == fromHeaderOrQuery {
		scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
		if ok && strings.EqualFold(scheme, "bearer") && token != "" {
			return strings.TrimSpace(token)
		}
	}
	return c.Query("token")
}

// GetClaims returns the identity set by one of the guards, or nil on
// unguarded routes.
func GetClaims(c *gin.Context) *service.Claims {
	val, _ := c.Get(ContextKeyClaims)
	claims, _ := val.(*service.Claims)
	return claims
}
