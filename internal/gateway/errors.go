package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/noah-isme/gateway-demo/internal/resilience"
	"github.com/noah-isme/gateway-demo/internal/signing"
)

// Kind classifies an operation failure.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindSigning     Kind = "signing"
	KindTransport   Kind = "transport"
	KindApplication Kind = "application"
)

// Error is the single failure type returned by gateway operations.
type Error struct {
	Kind    Kind
	Field   string
	Code    string
	Message string
	Status  int
	Body    string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case KindValidation:
		if e.Field != "" {
			return fmt.Sprintf("%s: %s", e.Field, e.Message)
		}
	case KindApplication:
		return fmt.Sprintf("gateway error %s: %s", e.Code, e.Message)
	case KindTransport:
		if e.Status > 0 {
			return fmt.Sprintf("gateway returned HTTP %d: %s", e.Status, e.Message)
		}
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// HTTPStatus maps the failure onto the status the demo routes answer with.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindSigning:
		return http.StatusBadRequest
	case KindApplication:
		return http.StatusUnprocessableEntity
	case KindTransport:
		if errors.Is(e.Err, resilience.ErrOpenCircuit) {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsKind reports whether err is a gateway Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var gerr *Error
	return errors.As(err, &gerr) && gerr.Kind == kind
}

func validationError(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

// classifySigning converts signing package sentinels into typed failures.
func classifySigning(err error) *Error {
	var verr *signing.ValueError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, signing.ErrEmptySecret):
		return &Error{Kind: KindSigning, Field: "secret", Message: "shared secret is not configured", Err: err}
	case errors.Is(err, signing.ErrEmptyAppCode):
		return &Error{Kind: KindValidation, Field: "appcode", Message: "is required", Err: err}
	case errors.Is(err, signing.ErrEmptyParams):
		return &Error{Kind: KindValidation, Field: "params", Message: "must not be empty", Err: err}
	case errors.Is(err, signing.ErrUnknownAlgorithm):
		return &Error{Kind: KindValidation, Field: "signatureType", Message: "must be MD5 or SHA256", Err: err}
	case errors.As(err, &verr):
		return &Error{Kind: KindValidation, Field: verr.Key, Message: "must be a string or number", Err: err}
	default:
		return &Error{Kind: KindSigning, Message: err.Error(), Err: err}
	}
}
