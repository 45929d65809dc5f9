package services

import "errors"

var (
	// ErrMatchNotActive rejects reconciliation of a match that is not in the
	// active status, whether pending or already terminal. Raised before any
	// external call is made.
	ErrMatchNotActive = errors.New("match is not active")

	// ErrNoLinkedAccount means the match creator has no Riot identity on
	// record, so the external result cannot be looked up.
	ErrNoLinkedAccount = errors.New("match creator has no linked game account")

	ErrAlreadyQueued    = errors.New("user already has a queue entry")
	ErrAlreadyInMatch   = errors.New("user already belongs to a non-terminal match")
	ErrMatchFull        = errors.New("match is full")
	ErrTeamFull         = errors.New("team is full")
	ErrInvalidQueueTier = errors.New("invalid queue tier")
	ErrMatchNotJoinable = errors.New("match is not accepting players")

	// errCommitConflict marks a lost optimistic race inside a transaction;
	// another tick already handled the match. Treated as a no-op upstream.
	errCommitConflict = errors.New("status changed before commit")
)
