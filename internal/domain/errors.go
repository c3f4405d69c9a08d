package domain

import "errors"

var (
	// ErrNotFound is returned when the requested entity does not exist or is not
	// visible to the acting user.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned for malformed or out of range input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAssociationRequired is returned when a member of one or more
	// associations records a transaction without choosing one of them.
	ErrAssociationRequired = errors.New("an association must be selected")

	// ErrForbidden is returned when the acting user may not touch the entity.
	ErrForbidden = errors.New("forbidden")
)
