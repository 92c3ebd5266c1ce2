package handlers

import "github.com/gin-gonic/gin"

// Guards are the middleware chains routes are mounted behind. Protected must
// start with the session gate so later entries (the rate limiter) see the
// caller's claims.
type Guards struct {
	Public    []gin.HandlerFunc
	Protected []gin.HandlerFunc
}

func (g Guards) public(h gin.HandlerFunc) []gin.HandlerFunc {
	return chain(g.Public, h)
}

func (g Guards) protected(h gin.HandlerFunc) []gin.HandlerFunc {
	return chain(g.Protected, h)
}

func chain(pre []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(pre)+1)
	out = append(out, pre...)
	return append(out, h)
}
