package httperr

import "errors"

// Business error codes surfaced by the booking engine.
const (
	CodeMissingFields          = "missing_fields"
	CodeMissingCustomerInfo    = "missing_customer_info"
	CodeInvalidCustomerInfo    = "invalid_customer_info"
	CodeSlotUnavailable        = "slot_unavailable"
	CodeInvalidTransition      = "invalid_transition"
	CodeNotFound               = "not_found"
	CodeForbidden              = "forbidden"
	CodePersistenceFailure     = "persistence_failure"
	CodeReconciliationConflict = "reconciliation_conflict"
	CodePaymentNotCompleted    = "payment_not_completed"
	CodeInvalidPaymentMetadata = "invalid_payment_metadata"
	CodePaymentProviderError   = "payment_provider_error"
	CodeDuplicateService       = "duplicate_service"
)

type BusinessError struct {
	Code string
	Err  error
}

func (e BusinessError) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e BusinessError) Unwrap() error {
	return e.Err
}

func ErrBusiness(code string) error {
	return BusinessError{Code: code}
}

// Wrap attaches a business code to an underlying cause.
func Wrap(code string, err error) error {
	return BusinessError{Code: code, Err: err}
}

func IsBusiness(err error, code string) bool {
	var be BusinessError
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}

// CodeOf returns the business code carried by err, if any.
func CodeOf(err error) (string, bool) {
	var be BusinessError
	if errors.As(err, &be) {
		return be.Code, true
	}
	return "", false
}
