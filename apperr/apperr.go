// Package apperr defines the error taxonomy shared by the stores, the
// lifecycle engines and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrNotFound is returned for unknown case, comment or authority ids.
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned when a required field is missing or malformed.
	ErrValidation = errors.New("validation error")
	// ErrInvalidTransition is returned when an action is illegal for the
	// current status, e.g. attesting a closed case.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrConflict is returned when a concurrent update won the race.
	ErrConflict = errors.New("conflict")
	// ErrStorage wraps failures of the persistence layer.
	ErrStorage = errors.New("storage error")
	// ErrUnauthorized is returned when a privileged action has no principal.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the principal lacks the required role.
	ErrForbidden = errors.New("forbidden")
)

// Wrap prefixes err with op, keeping it matchable with errors.Is.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Validation builds an ErrValidation with a field specific message.
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Transition builds an ErrInvalidTransition describing the rejected action.
func Transition(action, status string) error {
	return fmt.Errorf("%w: cannot %s a %s case", ErrInvalidTransition, action, status)
}

// Storage wraps a persistence failure as ErrStorage, keeping the cause text.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %v", op, ErrStorage, err)
}

// FromMongo translates driver errors into the taxonomy. Errors that are
// already classified pass through untouched.
func FromMongo(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict),
		errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidTransition):
		return Wrap(op, err)
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	default:
		return Storage(op, err)
	}
}

// HTTPStatus maps an error onto the response code the API returns for it.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
