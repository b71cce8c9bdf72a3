// Package session tracks AR play-throughs in memory.
//
// Sessions live only for the lifetime of the process. Callers receive copies,
// so a returned session never changes underneath them.
package session

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcoot/keyquest/internal/dependencies/clock"
	"github.com/mcoot/keyquest/internal/dependencies/random"
	"github.com/mcoot/keyquest/internal/metrics"
	"github.com/mcoot/keyquest/internal/model"
)

// IDBytes is the entropy of a session identifier
const IDBytes = 32

// InteractionKeyCollected is the interaction type logged by CollectKey
const InteractionKeyCollected = "key_collected"

// Config configures new sessions
type Config struct {
	RequiredKeys []string
	// IdleTTL evicts sessions idle for longer; 0 keeps them forever
	IdleTTL time.Duration
}

// DefaultConfig returns the default session configuration
func DefaultConfig() Config {
	return Config{
		RequiredKeys: []string{"key1", "key2", "key3", "key4"},
	}
}

// CollectResult is the outcome of a successful key collection
type CollectResult struct {
	Session        *model.GameSession
	TotalCollected int
	TotalRequired  int
	Completed      bool
}

// Stats summarises the registry
type Stats struct {
	Active    int
	Completed int
	Total     int
}

// RegistryStore holds every game session of the process
type RegistryStore struct {
	mu       sync.RWMutex
	sessions map[model.SessionID]*model.GameSession
	cfg      Config
	clock    clock.Clock
	random   random.Random
	logger   *slog.Logger
}

// NewRegistryStore creates an empty RegistryStore
func NewRegistryStore(cfg Config, clock clock.Clock, random random.Random, logger *slog.Logger) *RegistryStore {
	metrics.SessionsActive.Set(0)
	return &RegistryStore{
		sessions: make(map[model.SessionID]*model.GameSession),
		cfg:      cfg,
		clock:    clock,
		random:   random,
		logger:   logger,
	}
}

// Create starts a new session with the configured required keys
func (r *RegistryStore) Create() *model.GameSession {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	var id model.SessionID
	for {
		id = model.SessionID(r.random.Token(IDBytes))
		if _, exists := r.sessions[id]; !exists {
			break
		}
	}

	s := &model.GameSession{
		ID:            id,
		RequiredKeys:  slices.Clone(r.cfg.RequiredKeys),
		CollectedKeys: make(map[string]time.Time),
		TargetsFound:  make(map[string]time.Time),
		Interactions:  []model.Interaction{},
		CreatedAt:     now,
		LastActiveAt:  now,
	}
	r.sessions[id] = s
	metrics.SessionsActive.Set(float64(len(r.sessions)))

	r.logger.Debug("session created", slog.String("session_id", string(id)))
	return clone(s)
}

// Get returns a copy of the session
func (r *RegistryStore) Get(id model.SessionID) (*model.GameSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return clone(s), nil
}

// CollectKey marks keyName collected. The key must be required by the
// session and not yet collected.
func (r *RegistryStore) CollectKey(id model.SessionID, keyName, targetType, method string) (*CollectResult, error) {
	keyName = strings.TrimSpace(keyName)
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	if !s.IsRequired(keyName) {
		return nil, model.ErrUnknownKey
	}
	if s.HasCollected(keyName) {
		return nil, model.ErrKeyAlreadyCollected
	}

	s.CollectedKeys[keyName] = now
	s.TargetsFound[targetID(keyName, targetType)] = now
	s.Interactions = append(s.Interactions, model.Interaction{
		ID:   uuid.NewString(),
		Type: InteractionKeyCollected,
		Data: map[string]any{
			"keyName":    keyName,
			"targetType": targetType,
			"method":     method,
		},
		Timestamp: now,
	})
	s.LastActiveAt = now
	if !s.Completed && s.AllCollected() {
		s.Completed = true
		r.logger.Info("session completed", slog.String("session_id", string(id)))
	}

	metrics.SessionKeysCollected.WithLabelValues(keyName).Inc()

	return &CollectResult{
		Session:        clone(s),
		TotalCollected: len(s.CollectedKeys),
		TotalRequired:  len(s.RequiredKeys),
		Completed:      s.Completed,
	}, nil
}

// RecordInteraction appends client metadata to the session log. The
// timestamp is always the server's.
func (r *RegistryStore) RecordInteraction(id model.SessionID, interactionType string, data map[string]any) (model.Interaction, error) {
	interactionType = strings.TrimSpace(interactionType)
	if interactionType == "" {
		return model.Interaction{}, model.ErrInvalidInteraction
	}
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return model.Interaction{}, model.ErrSessionNotFound
	}

	if data == nil {
		data = map[string]any{}
	}
	in := model.Interaction{
		ID:        uuid.NewString(),
		Type:      interactionType,
		Data:      maps.Clone(data),
		Timestamp: now,
	}
	s.Interactions = append(s.Interactions, in)
	s.LastActiveAt = now

	return in, nil
}

// Progress summarises a session
func (r *RegistryStore) Progress(id model.SessionID) (*model.Progress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}

	collected := make([]string, 0, len(s.CollectedKeys))
	for _, k := range s.RequiredKeys {
		if s.HasCollected(k) {
			collected = append(collected, k)
		}
	}

	percent := 100
	if len(s.RequiredKeys) > 0 {
		percent = len(collected) * 100 / len(s.RequiredKeys)
	}

	return &model.Progress{
		SessionID:     s.ID,
		CollectedKeys: collected,
		RequiredKeys:  slices.Clone(s.RequiredKeys),
		TargetsFound:  len(s.TargetsFound),
		Interactions:  len(s.Interactions),
		Percent:       percent,
		Completed:     s.Completed,
	}, nil
}

// PruneIdle removes sessions idle for longer than the configured TTL and
// returns how many were removed
func (r *RegistryStore) PruneIdle() int {
	if r.cfg.IdleTTL <= 0 {
		return 0
	}
	cutoff := r.clock.Now().Add(-r.cfg.IdleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if s.LastActiveAt.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	metrics.SessionsActive.Set(float64(len(r.sessions)))

	if removed > 0 {
		r.logger.Info("pruned idle sessions", slog.Int("removed", removed))
	}
	return removed
}

// RunJanitor prunes idle sessions every interval until ctx is done
func (r *RegistryStore) RunJanitor(ctx context.Context, interval time.Duration) {
	if r.cfg.IdleTTL <= 0 || interval <= 0 {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.clock.After(interval):
			r.PruneIdle()
		}
	}
}

// Stats counts sessions by status
func (r *RegistryStore) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	st := Stats{Total: len(r.sessions)}
	for _, s := range r.sessions {
		if s.Completed {
			st.Completed++
		} else {
			st.Active++
		}
	}
	return st
}

// targetID names the AR target a key was found on
func targetID(keyName, targetType string) string {
	if targetType = strings.TrimSpace(targetType); targetType == "" {
		return keyName
	}
	return targetType + ":" + keyName
}

func clone(s *model.GameSession) *model.GameSession {
	c := *s
	c.RequiredKeys = slices.Clone(s.RequiredKeys)
	c.CollectedKeys = maps.Clone(s.CollectedKeys)
	c.TargetsFound = maps.Clone(s.TargetsFound)
	c.Interactions = slices.Clone(s.Interactions)
	return &c
}
