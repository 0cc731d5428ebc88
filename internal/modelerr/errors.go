// Package modelerr defines the setup-time failure kinds shared by the cost,
// impulse and kinematics packages.
//
// Every error here is raised while a model or a per-node Data is being
// built. Once construction succeeds, calc and calcDiff never fail.
package modelerr

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration indicates a malformed model parameter, such as an
	// unknown reference-frame convention or a degenerate support region.
	ErrConfiguration = errors.New("configuration error")

	// ErrContactResolution indicates that no active contact exists for the
	// configured frame.
	ErrContactResolution = errors.New("contact resolution error")

	// ErrContactType indicates an active contact whose kind cannot serve the
	// requested computation (e.g. a point contact where a wrench is needed).
	ErrContactType = errors.New("contact type error")

	// ErrDimension indicates mismatched vector or matrix sizes between
	// collaborating models.
	ErrDimension = errors.New("dimension error")
)

// Error carries the failure kind together with the frame it concerns.
type Error struct {
	Kind   error
	Frame  string
	Detail string
}

func (e *Error) Error() string {
	if e.Frame == "" {
		return fmt.Sprintf("%v: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%v: frame %q: %s", e.Kind, e.Frame, e.Detail)
}

func (e *Error) Unwrap() error { return e.Kind }

// Configuration returns an ErrConfiguration-kind error.
func Configuration(format string, args ...any) error {
	return &Error{Kind: ErrConfiguration, Detail: fmt.Sprintf(format, args...)}
}

// ContactResolution returns an ErrContactResolution-kind error for frame.
func ContactResolution(frame, format string, args ...any) error {
	return &Error{Kind: ErrContactResolution, Frame: frame, Detail: fmt.Sprintf(format, args...)}
}

// ContactType returns an ErrContactType-kind error for frame.
func ContactType(frame, format string, args ...any) error {
	return &Error{Kind: ErrContactType, Frame: frame, Detail: fmt.Sprintf(format, args...)}
}

// Dimension returns an ErrDimension-kind error for frame (which may be empty).
func Dimension(frame, format string, args ...any) error {
	return &Error{Kind: ErrDimension, Frame: frame, Detail: fmt.Sprintf(format, args...)}
}
