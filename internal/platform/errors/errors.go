package errors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindConfig       Kind = "config"
	KindCodec        Kind = "codec"
	KindRule         Kind = "rule"
	KindAnalysis     Kind = "analysis"
	KindArtDirection Kind = "artdirection"
	KindPlaceholder  Kind = "placeholder"
	KindCache        Kind = "cache"
	KindDelivery     Kind = "delivery"
	KindStorage      Kind = "storage"
	KindTransport    Kind = "transport"
	KindBootstrap    Kind = "bootstrap"
	KindUnknown      Kind = "unknown"
)

// Sentinel errors shared across the pipeline.
var (
	// ErrUnsupportedFormat is fatal for the single conversion call that
	// requested the format.
	ErrUnsupportedFormat = errors.New("unsupported target format")

	// ErrEncoderUnavailable marks a format the codec recognises but has no
	// registered encoder for.
	ErrEncoderUnavailable = errors.New("no encoder registered for format")
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Wrap(kind Kind, op, message string, err error) *Error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   err,
	}
}

func New(kind Kind, op, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
	}
}

// IsKind checks whether any error in the chain matches the provided kind.
func IsKind(err error, kind Kind) bool {
	var target *Error
	for err != nil {
		if errors.As(err, &target) {
			return target.Kind == kind
		}
		err = errors.Unwrap(err)
	}
	return false
}
