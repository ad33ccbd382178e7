package domain

import "errors"

var (
	// ErrTransferNotFound is returned when no events exist for the requested id.
	ErrTransferNotFound = errors.New("transfer not found")

	// ErrMissingFulfillment is returned when a conditional transfer has not
	// been fulfilled yet.
	ErrMissingFulfillment = errors.New("transfer has no fulfillment")

	// ErrUnpreparedTransfer is returned when a transition requires the
	// prepared state and the transfer is not in it.
	ErrUnpreparedTransfer = errors.New("transfer is not in prepared state")

	// ErrExpiredTransfer is returned when a fulfillment arrives after the
	// transfer's expiry.
	ErrExpiredTransfer = errors.New("transfer has expired")

	// ErrAlreadyRolledBack is returned when the fulfillment of a rejected
	// transfer is requested.
	ErrAlreadyRolledBack = errors.New("transfer has already been rejected")

	// ErrTransferNotConditional is returned for condition-only operations on
	// an unconditional transfer.
	ErrTransferNotConditional = errors.New("transfer is not conditional")

	// ErrInvalidModification is returned when a request conflicts with the
	// persisted state of the transfer.
	ErrInvalidModification = errors.New("invalid attempt to modify transfer")

	// ErrAlreadyExists is returned when a create races an identical create
	// that already won. The service layer treats it as success.
	ErrAlreadyExists = errors.New("transfer already exists")

	// ErrValidation marks malformed or semantically invalid input.
	ErrValidation = errors.New("validation failed")
)
