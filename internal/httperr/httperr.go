package httperr

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HTTPError struct {
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

func Write(c *gin.Context, status int, code, message string) {
	c.JSON(status, HTTPError{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, code, message string) {
	Write(c, http.StatusBadRequest, code, message)
}

func NotFound(c *gin.Context, code, message string) {
	Write(c, http.StatusNotFound, code, message)
}

func Internal(c *gin.Context, code, message string) {
	Write(c, http.StatusInternalServerError, code, message)
}

func Unauthorized(c *gin.Context, code, message string) {
	Write(c, http.StatusUnauthorized, code, message)
}

func Forbidden(c *gin.Context, code, message string) {
	Write(c, http.StatusForbidden, code, message)
}

func Conflict(c *gin.Context, code, message string) {
	Write(c, http.StatusConflict, code, message)
}

var businessStatus = map[string]struct {
	status  int
	message string
}{
	CodeMissingFields:          {http.StatusBadRequest, "Required booking data is missing."},
	CodeMissingCustomerInfo:    {http.StatusBadRequest, "Name and email are required."},
	CodeInvalidCustomerInfo:    {http.StatusBadRequest, "Customer information is invalid."},
	CodeInvalidPaymentMetadata: {http.StatusBadRequest, "Payment metadata is invalid."},
	CodeDuplicateService:       {http.StatusBadRequest, "Each service can be booked once per appointment."},
	CodeNotFound:               {http.StatusNotFound, "Resource not found."},
	CodeForbidden:              {http.StatusForbidden, "You cannot change this appointment."},
	CodeSlotUnavailable:        {http.StatusConflict, "This time is no longer available."},
	CodeInvalidTransition:      {http.StatusConflict, "This status change is not allowed."},
	CodeReconciliationConflict: {http.StatusConflict, "This payment was already recorded."},
	CodePaymentNotCompleted:    {http.StatusPaymentRequired, "Payment has not been completed."},
	CodePaymentProviderError:   {http.StatusBadGateway, "Payment provider is unavailable."},
	CodePersistenceFailure:     {http.StatusInternalServerError, "Could not save the appointment."},
}

// FromError writes the response matching err's business code, or a 500.
func FromError(c *gin.Context, err error) {
	code, ok := CodeOf(err)
	if !ok {
		Internal(c, "internal_error", "Unexpected error.")
		return
	}
	if m, found := businessStatus[code]; found {
		Write(c, m.status, code, m.message)
		return
	}
	BadRequest(c, code, code)
}
