// Package sentinel defines the error vocabulary between stores and services.
//
// Stores and infrastructure return these (optionally wrapped) so services can
// translate them into coded domain errors. They state facts about resources,
// not validation outcomes:
//   - ErrNotFound: entity does not exist in the store
//   - ErrConflict: a uniqueness or state constraint rejected the write
//   - ErrInvalidState: entity is in the wrong state for the operation
//   - ErrUnavailable: backing service temporarily unreachable
//
// For bad input, use pkg/domain-errors directly.
package sentinel

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
