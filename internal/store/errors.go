package store

import "errors"

var (
	ErrBusinessNotFound    = errors.New("business not found")
	ErrBusinessInactive    = errors.New("business is not accepting customers")
	ErrServiceNotFound     = errors.New("service not found")
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrInvalidState        = errors.New("invalid state")
	ErrValidation          = errors.New("validation failed")
	ErrApplicationNotFound = errors.New("application not found")
	ErrAdminNotFound       = errors.New("admin not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountDisabled     = errors.New("account disabled")
	ErrDuplicate           = errors.New("duplicate record")
)
