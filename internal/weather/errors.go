package weather

import (
	"errors"
	"fmt"
)

// Kind classifies why a provider produced no reading.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidURL
	KindTimeout
	KindTransportFailure
	KindMalformedResponse
	KindMissingRequiredField
)

func (k Kind) String() string {
	switch k {
	case KindInvalidURL:
		return "invalid_url"
	case KindTimeout:
		return "timeout"
	case KindTransportFailure:
		return "transport_failure"
	case KindMalformedResponse:
		return "malformed_response"
	case KindMissingRequiredField:
		return "missing_required_field"
	default:
		return "unknown"
	}
}

// Error is a classified pipeline failure. Err may be nil.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
