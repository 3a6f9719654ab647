package services

import (
	"errors"
	"fmt"
)

// Error categories. Specific errors below wrap one of these so handlers can
// map them to a response with errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("state conflict")
	ErrLimitExceeded = errors.New("limit exceeded")
	ErrDelivery      = errors.New("delivery failed")
	ErrPersistence   = errors.New("persistence failure")
)

// Run lifecycle errors
var (
	ErrNoActiveRun        = fmt.Errorf("%w: no active run", ErrNotFound)
	ErrDuplicateActiveRun = fmt.Errorf("%w: player already has an active run", ErrConflict)
	ErrRunNotFound        = fmt.Errorf("%w: run not found", ErrNotFound)
	ErrOwnerHasActiveRun  = fmt.Errorf("%w: owner already has a different active run", ErrConflict)
	ErrDailyLimitReached  = fmt.Errorf("%w: daily run limit reached", ErrLimitExceeded)
	ErrNoPendingRequest   = fmt.Errorf("%w: no pending request", ErrNotFound)
	ErrRequestExpired     = fmt.Errorf("%w: pending request expired", ErrValidation)
	ErrInvalidDeck        = fmt.Errorf("%w: deck export could not be parsed", ErrValidation)
)

// Queue errors
var (
	ErrAlreadyQueued = fmt.Errorf("%w: already in queue", ErrConflict)
	ErrNotQueued     = fmt.Errorf("%w: not in queue", ErrNotFound)
)

// Match reporting errors
var (
	ErrSelfMatch       = fmt.Errorf("%w: a player cannot play against themselves", ErrValidation)
	ErrAlreadyPlayed   = fmt.Errorf("%w: opponent already played this run", ErrValidation)
	ErrWrongActor      = fmt.Errorf("%w: only the reported loser may act on this session", ErrValidation)
	ErrSessionNotFound = fmt.Errorf("%w: match session not found", ErrNotFound)
	ErrSessionResolved = fmt.Errorf("%w: match session already resolved", ErrConflict)
	ErrNotDisputed     = fmt.Errorf("%w: match session is not in dispute", ErrConflict)
)
