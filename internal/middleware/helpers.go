// internal/middleware/helpers.go
package middleware

import (
	"vas-billing-service/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
)

func GetMSISDN(c *gin.Context) (string, bool) {
	v, exists := c.Get(ctxMSISDN)
	if !exists {
		return "", false
	}
	msisdn, ok := v.(string)
	return msisdn, ok && msisdn != ""
}

// MustGetMSISDN panics outside an Auth-protected route.
func MustGetMSISDN(c *gin.Context) string {
	msisdn, ok := GetMSISDN(c)
	if !ok {
		panic("msisdn not found in context")
	}
	return msisdn
}

func GetJTI(c *gin.Context) (string, bool) {
	v, exists := c.Get(ctxJTI)
	if !exists {
		return "", false
	}
	jti, ok := v.(string)
	return jti, ok
}

func GetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(ctxClaims)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok
}

func IsAuthenticated(c *gin.Context) bool {
	_, ok := GetMSISDN(c)
	return ok
}

func IsAdmin(c *gin.Context) bool {
	return c.GetBool(ctxIsAdmin)
}
