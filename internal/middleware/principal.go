package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"tasktracker/internal/models"
)

const principalKey = "principal"

type principalCtxKey struct{}

func setPrincipal(c *gin.Context, p models.Principal) {
	c.Set(principalKey, p)
	c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), p))
}

// PrincipalFrom returns the principal attached by Auth for this request.
func PrincipalFrom(c *gin.Context) (models.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}

func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(models.Principal)
	return p, ok
}
