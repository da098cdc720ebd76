package handlers

import "github.com/gin-gonic/gin"

// BindJSON binds and validates a request body. On failure it answers 400
// with the endpoint's own message; callers just return. Malformed JSON,
// missing fields and enum violations all fold into the same response.
func BindJSON(ctx *gin.Context, out interface{}, message string) bool {
	if err := ctx.ShouldBindJSON(out); err != nil {
		RespondBadRequest(ctx, message)
		return false
	}

	return true
}
