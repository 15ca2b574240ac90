package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOperationFailed    = errors.New("operation failed")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Payment gateway errors
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayRejected    = errors.New("payment gateway rejected transaction")

	// Credential errors
	ErrKeyRevoked = errors.New("api key is revoked")
)
