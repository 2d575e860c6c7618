// Package apperr defines the error taxonomy shared across Osaurus's
// request-processing and tool-execution backbone.
package apperr

import "fmt"

// Kind identifies which branch of the error taxonomy an error belongs to.
// Each dialect writer maps a Kind to its own error envelope shape.
type Kind string

const (
	InvalidRequest     Kind = "invalid_request"
	UnknownModel       Kind = "unknown_model"
	PolicyDenied       Kind = "policy_denied"
	InvalidArguments   Kind = "invalid_arguments"
	DuplicateName      Kind = "duplicate_name"
	UpstreamFailure    Kind = "upstream_failure"
	Timeout            Kind = "timeout"
	PluginLoadFailed   Kind = "plugin_load_failed"
	PluginInitFailed   Kind = "plugin_init_failed"
	SpecNotFound       Kind = "spec_not_found"
	NoMatchingArtifact Kind = "no_matching_artifact"
	ChecksumMismatch   Kind = "checksum_mismatch"
	SignatureInvalid   Kind = "signature_invalid"
	LayoutInvalid      Kind = "layout_invalid"
	NoPreviousVersion  Kind = "no_previous_version"
	Internal           Kind = "internal"
)

// Error is a typed, wrapped error carrying a Kind for dialect-agnostic
// propagation decisions.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error of the given kind with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error of the given kind wrapping a cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error,
// defaulting to Internal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if as(err, &e) {
		return e.Kind
	}
	return Internal
}

// as walks err's single-error Unwrap chain by hand, without calling
// errors.As, and stops at the first *Error it finds.
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// HTTPStatus maps a Kind to a non-streaming HTTP status code per the
// error-handling design (§7 of the spec).
func HTTPStatus(kind Kind) int {
	switch kind {
	case InvalidRequest, InvalidArguments:
		return 400
	case PolicyDenied:
		return 403
	case UnknownModel, SpecNotFound:
		return 404
	case UpstreamFailure:
		return 502
	case Timeout:
		return 504
	default:
		return 500
	}
}
