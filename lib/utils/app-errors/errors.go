package apperrors

import (
	"context"
	"database/sql/driver"
	"fmt"
	"net"

	"github.com/pkg/errors"
)

// ValidationError is malformed caller input: empty approver set, missing comment and so on.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

func NewValidationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// PermissionDenied is a Permission Gate rejection.
type PermissionDenied struct {
	Action  string
	Message string
}

func (e *PermissionDenied) Error() string {
	return e.Message
}

func NewPermissionDenied(action, message string) error {
	return &PermissionDenied{Action: action, Message: message}
}

// InvalidTransition is a state machine guard failure. State is left untouched.
type InvalidTransition struct {
	From    string
	Event   string
	Message string
}

func (e *InvalidTransition) Error() string {
	return e.Message
}

func NewInvalidTransition(from, event, message string) error {
	return &InvalidTransition{From: from, Event: event, Message: message}
}

// NotFoundError is an unknown approval, entity or user.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func NewNotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// StorageError wraps a failure of the underlying store.
type StorageError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Cause() error {
	return e.Err
}

// NewStorageError wraps err unless it is nil or already typed.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsTyped(err) {
		return err
	}
	return &StorageError{Op: op, Transient: isTransient(err), Err: err}
}

// GatewayError is a Directory or Entity lookup failure. Callers degrade to placeholders.
type GatewayError struct {
	Gateway string
	Err     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s gateway error: %v", e.Gateway, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func (e *GatewayError) Cause() error {
	return e.Err
}

func NewGatewayError(gateway string, err error) error {
	if err == nil {
		return nil
	}
	return &GatewayError{Gateway: gateway, Err: err}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsPermissionDenied(err error) bool {
	var target *PermissionDenied
	return errors.As(err, &target)
}

func IsInvalidTransition(err error) bool {
	var target *InvalidTransition
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsStorage(err error) bool {
	var target *StorageError
	return errors.As(err, &target)
}

func IsGateway(err error) bool {
	var target *GatewayError
	return errors.As(err, &target)
}

// IsTransient reports a storage failure worth one retry on an idempotent read.
func IsTransient(err error) bool {
	var target *StorageError
	if errors.As(err, &target) {
		return target.Transient
	}
	return false
}

// IsTyped is true for any error of this taxonomy.
func IsTyped(err error) bool {
	return IsValidation(err) || IsPermissionDenied(err) || IsInvalidTransition(err) ||
		IsNotFound(err) || IsStorage(err) || IsGateway(err)
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
