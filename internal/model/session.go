package model

import "time"

// SessionID identifies an AR play-through (hex encoded, 256 bits)
type SessionID string

// SessionStatus is the coarse lifecycle state reported to clients
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

// Interaction is one server-stamped entry in a session's event log
type Interaction struct {
	ID        string
	Type      string
	Data      map[string]any
	Timestamp time.Time
}

// GameSession is the ephemeral, in-memory state of one play-through
type GameSession struct {
	ID            SessionID
	RequiredKeys  []string
	CollectedKeys map[string]time.Time
	TargetsFound  map[string]time.Time
	Interactions  []Interaction
	Completed     bool
	CreatedAt     time.Time
	LastActiveAt  time.Time
}

// IsRequired reports whether keyName is one of the session's required keys
func (s *GameSession) IsRequired(keyName string) bool {
	for _, k := range s.RequiredKeys {
		if k == keyName {
			return true
		}
	}
	return false
}

// HasCollected reports whether keyName was already collected
func (s *GameSession) HasCollected(keyName string) bool {
	_, ok := s.CollectedKeys[keyName]
	return ok
}

// AllCollected reports whether every required key is collected
func (s *GameSession) AllCollected() bool {
	for _, k := range s.RequiredKeys {
		if !s.HasCollected(k) {
			return false
		}
	}
	return true
}

// Status returns the lifecycle state of the session
func (s *GameSession) Status() SessionStatus {
	if s.Completed {
		return SessionCompleted
	}
	return SessionActive
}

// Progress is a read-only summary of a session
type Progress struct {
	SessionID     SessionID
	CollectedKeys []string
	RequiredKeys  []string
	TargetsFound  int
	Interactions  int
	Percent       int
	Completed     bool
}
