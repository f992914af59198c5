package slot

import (
	"errors"
	"fmt"
)

// Error is a slot declaration or resolution failure.
//
// Resolution errors (missing value, immutable slot, incompatible type) are
// raised synchronously to the caller of Get or Set. Declaration errors
// (duplicate keyword, invalid spec) are raised when a type is defined.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Slot is the slot name involved.
	Slot string

	// Owner is the qualified type name owning the slot.
	Owner string

	// Message is a human-readable description.
	Message string
}

// ErrorCode categorizes slot errors.
type ErrorCode string

const (
	// ErrCodeMissingValue indicates no value is resolvable at access time.
	ErrCodeMissingValue ErrorCode = "MISSING_VALUE"

	// ErrCodeImmutableSlot indicates an external set on an auto-computed slot.
	ErrCodeImmutableSlot ErrorCode = "IMMUTABLE_SLOT"

	// ErrCodeDuplicateKeyword indicates a slot name collides with a
	// protected keyword of the type hierarchy.
	ErrCodeDuplicateKeyword ErrorCode = "DUPLICATE_KEYWORD"

	// ErrCodeIncompatibleType indicates a strict-typed slot received a
	// value of the wrong type.
	ErrCodeIncompatibleType ErrorCode = "INCOMPATIBLE_TYPE"

	// ErrCodeUnknownSlot indicates the name is not declared on the type.
	ErrCodeUnknownSlot ErrorCode = "UNKNOWN_SLOT"

	// ErrCodeInvalidSpec indicates a slot declaration breaks a spec invariant.
	ErrCodeInvalidSpec ErrorCode = "INVALID_SPEC"

	// ErrCodeResolutionCycle indicates a callback transitively read its own slot.
	ErrCodeResolutionCycle ErrorCode = "RESOLUTION_CYCLE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Owner != "" && e.Slot != "":
		return fmt.Sprintf("%s: %s (type=%s, slot=%s)", e.Code, e.Message, e.Owner, e.Slot)
	case e.Slot != "":
		return fmt.Sprintf("%s: %s (slot=%s)", e.Code, e.Message, e.Slot)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func hasCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsMissingValue reports whether err is a MISSING_VALUE error.
// Uses errors.As to handle wrapped errors.
func IsMissingValue(err error) bool { return hasCode(err, ErrCodeMissingValue) }

// IsImmutableSlot reports whether err is an IMMUTABLE_SLOT error.
func IsImmutableSlot(err error) bool { return hasCode(err, ErrCodeImmutableSlot) }

// IsDuplicateKeyword reports whether err is a DUPLICATE_KEYWORD error.
func IsDuplicateKeyword(err error) bool { return hasCode(err, ErrCodeDuplicateKeyword) }

// IsIncompatibleType reports whether err is an INCOMPATIBLE_TYPE error.
func IsIncompatibleType(err error) bool { return hasCode(err, ErrCodeIncompatibleType) }

// IsUnknownSlot reports whether err is an UNKNOWN_SLOT error.
func IsUnknownSlot(err error) bool { return hasCode(err, ErrCodeUnknownSlot) }

// IsInvalidSpec reports whether err is an INVALID_SPEC error.
func IsInvalidSpec(err error) bool { return hasCode(err, ErrCodeInvalidSpec) }

// NewMissingValueError creates an Error for a slot with no resolvable value.
func NewMissingValueError(owner, name string) *Error {
	return &Error{
		Code:    ErrCodeMissingValue,
		Slot:    name,
		Owner:   owner,
		Message: "slot has no value, default or callback",
	}
}

// NewImmutableSlotError creates an Error for a set on an auto-computed slot.
func NewImmutableSlotError(owner, name string) *Error {
	return &Error{
		Code:    ErrCodeImmutableSlot,
		Slot:    name,
		Owner:   owner,
		Message: "slot is computed by an auto callback and cannot be set",
	}
}

// NewDuplicateKeywordError creates an Error for a keyword collision.
func NewDuplicateKeywordError(owner, name, declaredBy string) *Error {
	return &Error{
		Code:    ErrCodeDuplicateKeyword,
		Slot:    name,
		Owner:   owner,
		Message: fmt.Sprintf("name is a protected keyword declared by %s", declaredBy),
	}
}

// NewIncompatibleTypeError creates an Error for a strict type mismatch.
func NewIncompatibleTypeError(owner, name string, want, got any) *Error {
	return &Error{
		Code:    ErrCodeIncompatibleType,
		Slot:    name,
		Owner:   owner,
		Message: fmt.Sprintf("expected %v, got %v", want, got),
	}
}

// NewUnknownSlotError creates an Error for an undeclared slot name.
func NewUnknownSlotError(owner, name string) *Error {
	return &Error{
		Code:    ErrCodeUnknownSlot,
		Slot:    name,
		Owner:   owner,
		Message: "no such slot",
	}
}

func newInvalidSpecError(owner, name, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeInvalidSpec,
		Slot:    name,
		Owner:   owner,
		Message: fmt.Sprintf(format, args...),
	}
}
