package result

import (
	"errors"
	"fmt"
)

// Kind failure category
type Kind int

const (
	// KindUpstream data store or external service failure
	KindUpstream Kind = iota
	// KindValidation bad input shape, length or type
	KindValidation
	// KindDecryption wrong key or corrupt cipher text
	KindDecryption
	// KindAuthentication bad credentials or expired session
	KindAuthentication
)

// String human readable kind name
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDecryption:
		return "decryption"
	case KindAuthentication:
		return "authentication"
	}
	return "upstream"
}

const (
	// DecryptionFailedMsg the only message a decryption failure carries
	DecryptionFailedMsg = "Failed to decrypt data"
	// InvalidLoginMsg the only message an authentication failure carries
	InvalidLoginMsg = "Invalid login"
	// UpstreamFailedMsg the message shown to clients for upstream failures
	UpstreamFailedMsg = "An Error has Occurred"
)

// Error a categorized failure
type Error struct {
	// Kind failure category
	Kind Kind
	// Message short human readable message, safe to show to clients
	Message string
	cause   error
}

// Error implements error
func (e *Error) Error() string {
	if e.cause != nil && e.Kind == KindUpstream {
		return fmt.Sprintf("%s [%s]", e.Message, e.cause.Error())
	}
	return e.Message
}

// Unwrap the underlying cause, if any
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches errors of the same kind and message
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind && other.Message == e.Message
}

// Validation define a validation failure
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Validationf define a validation failure with a formatted message
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Decryption define the generic decryption failure. The cause is deliberately not
// retained.
func Decryption() *Error {
	return &Error{Kind: KindDecryption, Message: DecryptionFailedMsg}
}

// Authentication define the generic authentication failure
func Authentication() *Error {
	return &Error{Kind: KindAuthentication, Message: InvalidLoginMsg}
}

// Upstream define an upstream failure wrapping the cause
func Upstream(cause error) *Error {
	return &Error{Kind: KindUpstream, Message: UpstreamFailedMsg, cause: cause}
}

/*
AsError convert any error into an `*Error`. `*Error` anywhere in the chain is returned
as is, everything else becomes an upstream failure.

	@param err error - the error
	@returns categorized error
*/
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var categorized *Error
	if errors.As(err, &categorized) {
		return categorized
	}
	return Upstream(err)
}

/*
KindOf fetch the kind of an error

	@param err error - the error
	@returns error kind
*/
func KindOf(err error) Kind {
	return AsError(err).Kind
}
