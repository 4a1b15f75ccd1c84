package namespace

import (
	"errors"
	"fmt"

	"github.com/joshjon/kit/errtag"
)

// ErrRoutingInvalid is returned when a namespace scoped request carries no
// namespace. It is untagged and surfaces as an internal error.
var ErrRoutingInvalid = errors.New("request did not resolve to a namespace route")

type ErrTagMalformed struct{ errtag.InvalidArgument }

func (ErrTagMalformed) Msg() string { return "Malformed namespace" }

func (e ErrTagMalformed) Unwrap() error {
	return errtag.Tag[errtag.InvalidArgument](e.Cause())
}

type ErrTagNotFound struct{ errtag.NotFound }

func (ErrTagNotFound) Msg() string { return "Namespace not found" }

func (e ErrTagNotFound) Unwrap() error {
	return errtag.Tag[errtag.NotFound](e.Cause())
}

type ErrTagConflict struct{ errtag.Conflict }

func (ErrTagConflict) Msg() string { return "Namespace already exists" }

func (e ErrTagConflict) Unwrap() error {
	return errtag.Tag[errtag.Conflict](e.Cause())
}

// MalformedError returns an InvalidArgument tagged error for a malformed
// namespace.
func MalformedError(detail string) error {
	return errtag.Tag[ErrTagMalformed](errors.New(detail))
}

// NotFoundError returns a NotFound tagged error for the namespace.
func NotFoundError(id Identity) error {
	return errtag.Tag[ErrTagNotFound](fmt.Errorf("namespace does not exist: %s", id))
}

// ConflictError returns a Conflict tagged error for the namespace.
func ConflictError(id Identity) error {
	return errtag.Tag[ErrTagConflict](fmt.Errorf("namespace already exists: %s", id))
}
