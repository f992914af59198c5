package compose

import (
	"errors"
	"fmt"
)

// LoadError is a dump or load failure.
type LoadError struct {
	// Code identifies the error category.
	Code LoadErrorCode

	// Type is the type name involved, if any.
	Type string

	// Field is the dotted slot path involved, if any.
	Field string

	Message string
}

// LoadErrorCode categorizes dump and load errors.
type LoadErrorCode string

const (
	// ErrCodeModuleNotAllowed indicates a safe load met a type outside its
	// allow-list.
	ErrCodeModuleNotAllowed LoadErrorCode = "MODULE_NOT_ALLOWED"

	// ErrCodeUnserializableValue indicates a strict dump met a value with no
	// structural representation.
	ErrCodeUnserializableValue LoadErrorCode = "UNSERIALIZABLE_VALUE"

	// ErrCodeUnknownType indicates no type is registered under the name.
	ErrCodeUnknownType LoadErrorCode = "UNKNOWN_TYPE"
)

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Type != "" {
		msg += " (type=" + e.Type
		if e.Field != "" {
			msg += ", field=" + e.Field
		}
		msg += ")"
	} else if e.Field != "" {
		msg += " (field=" + e.Field + ")"
	}
	return msg
}

func hasLoadCode(err error, code LoadErrorCode) bool {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code == code
	}
	return false
}

// IsModuleNotAllowed reports whether err is a MODULE_NOT_ALLOWED error.
func IsModuleNotAllowed(err error) bool { return hasLoadCode(err, ErrCodeModuleNotAllowed) }

// IsUnserializableValue reports whether err is an UNSERIALIZABLE_VALUE error.
func IsUnserializableValue(err error) bool { return hasLoadCode(err, ErrCodeUnserializableValue) }

// IsUnknownType reports whether err is an UNKNOWN_TYPE error.
func IsUnknownType(err error) bool { return hasLoadCode(err, ErrCodeUnknownType) }

// ErrNoRunLogic is returned when invoking a type that declares no run logic.
var ErrNoRunLogic = errors.New("type has no run logic")

// ErrNotANode is returned when a path segment does not name a node.
var ErrNotANode = errors.New("not a node")
