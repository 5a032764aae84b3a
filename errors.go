package panelGate

import (
	"errors"

	"github.com/MrEthical07/panelGate/session"
)

var (
	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrBuilderUsed is returned when Build is called twice on one Builder.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrEngineClosed is returned by operations attempted after Close.
	ErrEngineClosed = errors.New("engine closed")
	// ErrMissingToken is returned when session cookies are written without a token.
	ErrMissingToken = errors.New("session token required")
	// ErrTokenExpired is returned when session cookies are written for an expired JWT.
	ErrTokenExpired = errors.New("session token expired")
	// ErrSessionPersist is returned when a session store could not write its durable copy.
	ErrSessionPersist = session.ErrPersist
	// ErrSessionHydrate is returned when a durable session copy exists but cannot be read.
	ErrSessionHydrate = session.ErrHydrate
)
