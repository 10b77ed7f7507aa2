package utils

import "github.com/gin-gonic/gin"

// MessageResponse is the body of every JSON error answer.
type MessageResponse struct {
	Message string `json:"message"`
}

// Error writes a JSON {"message": ...} body with the given status code.
func Error(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, MessageResponse{Message: message})
}

// Success writes data as a 200 JSON response.
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(200, data)
}
