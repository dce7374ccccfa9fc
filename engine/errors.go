// Package engine defines the error taxonomy shared by every booking engine
// component and its mapping onto HTTP statuses.
package engine

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ValidationError reports malformed or rejected input, keyed by field.
type ValidationError struct {
	fields map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{fields: make(map[string][]string)}
}

// Invalidf builds a single-field validation error in one call.
func Invalidf(field, format string, args ...any) *ValidationError {
	ve := NewValidationError()
	ve.Add(field, fmt.Sprintf(format, args...))
	return ve
}

func (ve *ValidationError) Add(field, msg string) {
	ve.fields[field] = append(ve.fields[field], msg)
}

func (ve *ValidationError) HasErrors() bool {
	return len(ve.fields) > 0
}

func (ve *ValidationError) Fields() map[string][]string {
	return ve.fields
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %+v", ve.fields)
}

func AsValidation(err error) *ValidationError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}

// CapacityError means availability evaporated between quote and commit. The
// caller must re-quote before retrying.
type CapacityError struct {
	RoomTypeID uint
	CheckIn    time.Time
	CheckOut   time.Time
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf(
		"no room of type %d free for %s to %s",
		e.RoomTypeID,
		e.CheckIn.Format(time.DateOnly),
		e.CheckOut.Format(time.DateOnly),
	)
}

func AsCapacity(err error) *CapacityError {
	var ce *CapacityError
	if errors.As(err, &ce) {
		return ce
	}
	return nil
}

// InvalidStateError reports a lifecycle event that is not legal from the
// booking's current state.
type InvalidStateError struct {
	Event   string
	Current string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s a booking in state %s", e.Event, e.Current)
}

func AsInvalidState(err error) *InvalidStateError {
	var se *InvalidStateError
	if errors.As(err, &se) {
		return se
	}
	return nil
}

// NotFoundError reports an unknown id.
type NotFoundError struct {
	Resource string
	ID       any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

func AsNotFound(err error) *NotFoundError {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return nf
	}
	return nil
}

// HTTPStatus maps an engine error onto its response status.
func HTTPStatus(err error) int {
	switch {
	case AsValidation(err) != nil:
		return http.StatusUnprocessableEntity
	case AsCapacity(err) != nil:
		return http.StatusConflict
	case AsInvalidState(err) != nil:
		return http.StatusConflict
	case AsNotFound(err) != nil:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
