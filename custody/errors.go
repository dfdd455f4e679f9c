package custody

import (
	"errors"
	"fmt"
)

// Store sentinels. Stores return these (optionally wrapped) and the
// repository translates them into the typed errors below.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

// ValidationError reports a rejected input: duplicate id, missing or
// malformed field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a mutation or read against an unknown record id
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("record %s not found", e.ID)
}

// UploadError reports a blob store or registration failure while attaching a file
type UploadError struct {
	Op  string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s failed: %v", e.Op, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// ConnectivityError reports an unreachable datastore or notification channel
type ConnectivityError struct {
	Component string
	Err       error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Component, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// ForbiddenError reports a role lacking the permission an operation requires
type ForbiddenError struct {
	Role       Role
	Permission Permission
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("role %s lacks %s", e.Role, e.Permission)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func datastore(err error) error {
	return &ConnectivityError{Component: "datastore", Err: err}
}
