package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/todaysales-settlement/internal/api_gateway/middleware"
)

// Response is the envelope of every gateway reply. Exactly one of Data and Error is set.
type Response struct {
	Data          any        `json:"data,omitempty"`
	Error         *ErrorInfo `json:"error,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
}

// ErrorInfo carries a stable machine code next to the human message
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respond(c *gin.Context, status int, r Response) {
	r.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(status, r)
}

func RespondWithData(c *gin.Context, status int, data any) {
	respond(c, status, Response{Data: data})
}

func RespondWithError(c *gin.Context, status int, code, message string) {
	respond(c, status, Response{Error: &ErrorInfo{Code: code, Message: message}})
}

func RespondOK(c *gin.Context, data any) { RespondWithData(c, http.StatusOK, data) }

func RespondCreated(c *gin.Context, data any) { RespondWithData(c, http.StatusCreated, data) }

// RespondAccepted acknowledges work queued for the settlement engine.
func RespondAccepted(c *gin.Context, data any) { RespondWithData(c, http.StatusAccepted, data) }

func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

func RespondNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, "NOT_FOUND", message)
}

func RespondConflict(c *gin.Context, message string) {
	RespondWithError(c, http.StatusConflict, "CONFLICT", message)
}

// RespondInternalError hides the cause; it is logged by the caller.
func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}
