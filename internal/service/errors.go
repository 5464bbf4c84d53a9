// Package service provides business logic services for CodeLinker Admin.
package service

import "errors"

// Common service errors.
var (
	// ErrMissingUpdateField rejects an admin update that names none of
	// new_role, activate, clean_locked.
	ErrMissingUpdateField = errors.New("at least one of new_role, activate or clean_locked is required")

	// ErrMissingSelfField rejects a self-service change that names
	// neither a new username nor a new password.
	ErrMissingSelfField = errors.New("at least one of new_user_name or new_password is required")

	// ErrSelfTarget rejects an admin mutation aimed at the actor's own row.
	ErrSelfTarget = errors.New("operation may not target the acting user")

	// ErrNewUsernameTaken rejects a self-service rename to a name that
	// another row already holds.
	ErrNewUsernameTaken = errors.New("requested username is already taken")

	// ErrUnexpectedWriteCount reports a mutation that affected a row
	// count other than exactly one.
	ErrUnexpectedWriteCount = errors.New("unexpected affected row count")

	// ErrInternalError wraps storage failures and other faults the
	// caller cannot act on.
	ErrInternalError = errors.New("internal server error")
)
