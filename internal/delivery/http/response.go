package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Response is the envelope of every API reply
type Response struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
	Error     any    `json:"error,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// reply stamps the request id set by the RequestID middleware
func reply(c echo.Context, code int, resp Response) error {
	resp.RequestID = c.Response().Header().Get(echo.HeaderXRequestID)
	return c.JSON(code, resp)
}

// SuccessResponse sends data with a 200
func SuccessResponse(c echo.Context, data any) error {
	return reply(c, http.StatusOK, Response{Status: statusSuccess, Data: data})
}

// SuccessMessageResponse sends data and a message with a 200
func SuccessMessageResponse(c echo.Context, message string, data any) error {
	return reply(c, http.StatusOK, Response{Status: statusSuccess, Message: message, Data: data})
}

// CycleFailedResponse reports a cycle that ran to a failed terminal status.
// The request itself succeeded, so the code stays 200.
func CycleFailedResponse(c echo.Context, data any, err error) error {
	return reply(c, http.StatusOK, Response{Status: statusError, Message: "Cycle failed", Data: data, Error: err.Error()})
}

// ErrorResponse sends an error envelope with the given code
func ErrorResponse(c echo.Context, code int, message string, err any) error {
	return reply(c, code, Response{Status: statusError, Message: message, Error: err})
}

func BadRequestResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusBadRequest, message, nil)
}

func NotFoundResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusNotFound, message, nil)
}

func ConflictResponse(c echo.Context, message string) error {
	return ErrorResponse(c, http.StatusConflict, message, nil)
}

// InternalServerErrorResponse sends a 500 carrying the error text
func InternalServerErrorResponse(c echo.Context, message string, err error) error {
	var detail any
	if err != nil {
		detail = err.Error()
	}
	return ErrorResponse(c, http.StatusInternalServerError, message, detail)
}
