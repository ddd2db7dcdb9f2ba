package apierror

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse is what services hand back instead of raw errors; routes
// render the value itself as the JSON body under its Code().
type ErrorResponse interface {
	Code() int
}

type simpleError struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *simpleError) Code() int {
	return e.Status
}

func NewSimple(code int, message string) ErrorResponse {
	return &simpleError{Status: code, Message: message}
}

var (
	InternalServerError   = NewSimple(500, "Something went wrong on our side")
	MalformedBodyError    = NewSimple(400, "Request body could not be parsed")
	NotFoundError         = NewSimple(404, "Resource not found")
	InvalidAuthTokenError = NewSimple(401, "Missing or invalid authorization token")

	StartNotBeforeEndError = NewSimple(400, "Start time must be before end time")
	UnknownColorError      = NewSimple(400, "Color is not part of the event palette")
	NoPendingConflictError = NewSimple(404, "No pending conflict to resolve")
	ResolverBusyError      = NewSimple(409, "A resolution for this conflict is already in flight")

	UserAlreadyExistsError    = NewSimple(409, "A user with this email already exists")
	UserAlreadyConfirmedError = NewSimple(409, "User is already confirmed")

	IDPUserNotFoundError        = NewSimple(404, "No account exists for this email")
	IDPUserNotConfirmedError    = NewSimple(403, "Account email is not confirmed yet")
	IDPCredentialsMismatchError = NewSimple(401, "Email and password do not match")
	IDPInvalidPasswordError     = NewSimple(400, "Password was rejected by the identity provider")
	IDPExistingEmailError       = NewSimple(409, "A user with this email already exists")
	IDPConfirmCodeMismatchError = NewSimple(400, "Confirmation code does not match")
	IDPConfirmCodeExpiredError  = NewSimple(400, "Confirmation code has expired")
)

func NewMissingParamError(name string) ErrorResponse {
	return NewSimple(400, fmt.Sprintf("Missing required parameter %q", name))
}

func NewInvalidParamError(name, expected string) ErrorResponse {
	return NewSimple(400, fmt.Sprintf("Parameter %q must be a valid %s", name, expected))
}

type rateLimitError struct {
	Status            int    `json:"-"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retry_after_seconds"`
}

func (e *rateLimitError) Code() int {
	return e.Status
}

// NewRateLimitedError is returned when the identity provider throttles us
// or the local cooldown gate is still closed.
func NewRateLimitedError(retryAfterSeconds int) ErrorResponse {
	return &rateLimitError{
		Status:            429,
		Message:           "Too many requests, wait before trying again",
		RetryAfterSeconds: retryAfterSeconds,
	}
}

type validationError struct {
	Status  int               `json:"-"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *validationError) Code() int {
	return e.Status
}

// FromValidationError maps a validator failure to a 400 with one message
// per offending field.
func FromValidationError(err error) ErrorResponse {
	resp := &validationError{Status: 400, Message: "Validation failed"}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Fields = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			resp.Fields[strings.ToLower(fe.Field())] = ruleMessage(fe)
		}
	}
	return resp
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "iso8601":
		return "must be an RFC3339 timestamp"
	case "eventcolor":
		return "must be one of the palette colors"
	case "hasupper":
		return "must contain an uppercase letter"
	case "haslower":
		return "must contain a lowercase letter"
	case "hasdigit":
		return "must contain a digit"
	case "hasspecial":
		return "must contain a special character"
	case "nospaces":
		return "must not contain whitespace"
	default:
		return "is invalid"
	}
}
