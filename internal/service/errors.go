package service

import "errors"

var (
	// ErrInvalidTransition: the operation is not legal from the contract's
	// current status. No mutation happened; safe to retry after fixing state.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStateConflict: a concurrent transition won the race between our
	// read and the guarded update. Callers should reload and retry.
	ErrStateConflict = errors.New("contract changed concurrently")

	ErrEditReasonRequired = errors.New("edit reason is required")
	ErrContractLocked     = errors.New("contract is no longer editable")
	ErrVehicleUnavailable = errors.New("vehicle is not available for the requested dates")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
)
