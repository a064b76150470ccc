package infragraph

import (
	"errors"
	"fmt"
)

// ValidationError means the request was malformed and was rejected before
// any network call was issued. It is always resolved locally.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// NotFoundError means the asset vanished between selection and the
// update/delete that referenced it.
type NotFoundError struct {
	Kind AssetKind
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

// TransportError wraps a network or server failure. The previous known-good
// state is preserved by the caller; nothing is retried automatically.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
