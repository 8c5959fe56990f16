package engine

import "errors"

var (
	ErrUnknownStation = errors.New("unknown station")
	ErrUnknownFaction = errors.New("unknown faction")
	ErrFactionLocked  = errors.New("faction is eliminated")
	ErrNoEligibleRole = errors.New("no role belongs to an active faction")
	ErrSessionEnded   = errors.New("session has ended")
)
