package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/jwalitptl/medicare-api/pkg/errors"
	"github.com/jwalitptl/medicare-api/pkg/auth"
	"github.com/jwalitptl/medicare-api/pkg/httputil"
)

const ContextClaims = "claims"

type AuthMiddleware struct {
	jwt auth.JWTService
}

func NewAuthMiddleware(jwt auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// Authenticate accepts a token from the Authorization header or, for
// download links, the token query parameter.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			httputil.RespondWithError(c, apperrors.Unauthorized(nil))
			return
		}

		claims, err := m.jwt.Validate(token)
		if err != nil {
			httputil.RespondWithError(c, apperrors.Unauthorized(err))
			return
		}

		c.Set(ContextClaims, claims)
		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireStaff rejects patient tokens.
func (m *AuthMiddleware) RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil || !claims.IsStaff() {
			httputil.RespondWithError(c, apperrors.Forbidden("staff access required"))
			return
		}
		c.Next()
	}
}

// RequirePatient rejects staff tokens.
func (m *AuthMiddleware) RequirePatient() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil || claims.Role != auth.RolePatient {
			httputil.RespondWithError(c, apperrors.Forbidden("patient access required"))
			return
		}
		c.Next()
	}
}

// Claims returns the authenticated caller, or nil on public routes.
func Claims(c *gin.Context) *auth.Claims {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

// CanAccessPatient reports whether the caller may read patientID's data:
// staff may read anyone, patients only themselves.
func CanAccessPatient(c *gin.Context, patientID uuid.UUID) bool {
	claims := Claims(c)
	if claims == nil {
		return false
	}
	return claims.IsStaff() || claims.UserID == patientID
}
