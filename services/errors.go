package services

import "errors"

// Business-rule errors. Each rule gets its own sentinel so the HTTP layer (and
// the bot gateway behind it) can tell outcomes apart with errors.Is; wording
// shown to users is not this package's concern.
var (
	ErrCompetitionNotFound = errors.New("competition not found")

	// Creation caps and throttling
	ErrOwnerCompetitionLimit  = errors.New("owner already has an active competition on this server")
	ErrServerCompetitionLimit = errors.New("server already has the maximum number of active competitions")

	// Participant state machine
	ErrInactiveCompetition        = errors.New("competition is cancelled or has ended")
	ErrAlreadyParticipant         = errors.New("player is already a participant")
	ErrCannotRejoin               = errors.New("player left this competition and cannot rejoin")
	ErrMaximumParticipantsReached = errors.New("competition has reached its maximum participants")
	ErrNotParticipant             = errors.New("player is not a participant")
	ErrNotInvited                 = errors.New("player has no pending invitation")

	// Visibility gate
	ErrInviteOnly     = errors.New("competition is invite-only")
	ErrNotOwner       = errors.New("only the competition owner may do this")
	ErrBulkNotAllowed = errors.New("bulk enrollment requires a server-wide competition")
)
