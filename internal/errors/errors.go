package errors

import "fmt"

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code, message string, cause ...error) *AppError {
	var c error
	if len(cause) > 0 {
		c = cause[0]
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   c,
	}
}

var (
	ErrMedicineName    = &AppError{Code: "VAL_001", Message: "medicine name is required"}
	ErrMedicineDosage  = &AppError{Code: "VAL_002", Message: "medicine dosage is required"}
	ErrMedicineTimes   = &AppError{Code: "VAL_003", Message: "medicine has no valid times"}
	ErrMedicineDates   = &AppError{Code: "VAL_004", Message: "end date is before start date"}
	ErrInvalidDate     = &AppError{Code: "VAL_005", Message: "invalid date, expected YYYY-MM-DD"}
	ErrInvalidTime     = &AppError{Code: "VAL_006", Message: "invalid time, expected HH:MM"}
	ErrInvalidStatus   = &AppError{Code: "VAL_007", Message: "invalid intake status"}
	ErrUnscheduledTime = &AppError{Code: "VAL_008", Message: "time does not match a scheduled dose"}

	ErrMedicineNotFound = &AppError{Code: "MED_001", Message: "medicine not found"}
	ErrIntakeNotFound   = &AppError{Code: "INTAKE_001", Message: "intake not found"}

	ErrPersistence  = &AppError{Code: "STORE_001", Message: "persistence unavailable"}
	ErrNotification = &AppError{Code: "NOTIFY_001", Message: "notification delivery failed"}
)

func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}
