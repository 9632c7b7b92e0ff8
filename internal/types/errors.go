package types

// API error codes returned in ErrorBody.Code.
const (
	CodeBadRequest   = "AIO_400"
	CodeUnauthorized = "AUTH_401"
	CodeNotReady     = "AIO_503"
	CodeInternal     = "AIO_500"

	// Board exchange failures, one per error class of the driver.
	CodeRange  = "AIO_RANGE"
	CodeShape  = "AIO_SHAPE"
	CodeTarget = "AIO_TARGET"
	CodeBus    = "AIO_BUS"
)

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// NewErrorResponse builds the error payload of every API handler.
// details is optional; handlers pass err.Error() for driver errors.
func NewErrorResponse(code, message string, details any) ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// IsClientError reports whether code describes a request the caller can
// fix by changing it.
func IsClientError(code string) bool {
	switch code {
	case CodeBadRequest, CodeRange, CodeShape, CodeTarget:
		return true
	}
	return false
}
