package echoapi

import (
	"github.com/labstack/echo/v4"
)

// Response is the uniform envelope returned by every endpoint, success or
// failure, alongside the redundant HTTP status code.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func respond(ctx echo.Context, code int, message string, data interface{}) error {
	return ctx.JSON(code, Response{
		Success: code < 400,
		Message: message,
		Data:    data,
	})
}
