package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joseaugf/cop320-cw/pkg/cerrors"
	"github.com/joseaugf/cop320-cw/pkg/telemetry"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	TraceID   string `json:"trace_id"`
	Timestamp string `json:"timestamp"`
}

func respondError(c *gin.Context, status int, code cerrors.ErrorType, message string) {
	c.JSON(status, errorBody{Error: errorDetail{
		Code:      string(code),
		Message:   message,
		TraceID:   telemetry.CorrelationID(c.Request.Context()),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}})
}

// WriteError maps an error from the flag store or the simulators to its HTTP
// response: validation conflicts are 400, unknown flags 404, deliberately
// injected faults 500 with the distinguishing SIMULATED_ERROR code, and
// everything else a generic 500.
func WriteError(c *gin.Context, err error) {
	message, code := cerrors.GetRootCauseAndErrorCode(err)
	switch code {
	case cerrors.ErrorTypeValidation:
		respondError(c, http.StatusBadRequest, code, message)
	case cerrors.ErrorTypeFlagNotFound:
		respondError(c, http.StatusNotFound, code, message)
	case cerrors.ErrorTypeSimulated:
		respondError(c, http.StatusInternalServerError, code, message)
	default:
		respondError(c, http.StatusInternalServerError, cerrors.ErrorTypeNonUserFriendly, message)
	}
}
