package response

import (
	"time"

	"github.com/mcoot/keyquest/internal/model"
	"github.com/mcoot/keyquest/internal/services/identity"
	"github.com/mcoot/keyquest/internal/services/session"
)

// Status is a bare success/failure acknowledgement
type Status struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// SessionCreated is the response for POST /session/create
type SessionCreated struct {
	SessionID    string   `json:"sessionId"`
	RequiredKeys []string `json:"requiredKeys"`
	Status       string   `json:"status"`
}

// SessionCreatedFromModel converts a new session
func SessionCreatedFromModel(s *model.GameSession) SessionCreated {
	return SessionCreated{
		SessionID:    string(s.ID),
		RequiredKeys: s.RequiredKeys,
		Status:       string(s.Status()),
	}
}

// SessionValidation is the response for GET /session/{id}/validate
type SessionValidation struct {
	Valid              bool `json:"valid"`
	CollectedKeysCount int  `json:"collectedKeysCount"`
	TotalKeys          int  `json:"totalKeys"`
	IsCompleted        bool `json:"isCompleted"`
}

// SessionValidationFromModel converts a session
func SessionValidationFromModel(s *model.GameSession) SessionValidation {
	return SessionValidation{
		Valid:              true,
		CollectedKeysCount: len(s.CollectedKeys),
		TotalKeys:          len(s.RequiredKeys),
		IsCompleted:        s.Completed,
	}
}

// CollectKey is the response for POST /session/{id}/collect-key
type CollectKey struct {
	Success        bool   `json:"success"`
	TotalCollected int    `json:"totalCollected"`
	TotalRequired  int    `json:"totalRequired"`
	IsCompleted    bool   `json:"isCompleted"`
	Message        string `json:"message"`
}

// CollectKeyFromResult converts a collection result
func CollectKeyFromResult(r *session.CollectResult) CollectKey {
	msg := "Key collected"
	if r.Completed {
		msg = "All keys collected"
	}
	return CollectKey{
		Success:        true,
		TotalCollected: r.TotalCollected,
		TotalRequired:  r.TotalRequired,
		IsCompleted:    r.Completed,
		Message:        msg,
	}
}

// Interaction is the response for POST /session/{id}/interaction
type Interaction struct {
	Success       bool      `json:"success"`
	InteractionID string    `json:"interactionId"`
	Timestamp     time.Time `json:"timestamp"`
}

// Progress is the response for GET /session/{id}/progress
type Progress struct {
	SessionID     string   `json:"sessionId"`
	CollectedKeys []string `json:"collectedKeys"`
	RequiredKeys  []string `json:"requiredKeys"`
	TargetsFound  int      `json:"targetsFound"`
	Interactions  int      `json:"interactions"`
	Percent       int      `json:"percent"`
	IsCompleted   bool     `json:"isCompleted"`
}

// ProgressFromModel converts model.Progress
func ProgressFromModel(p *model.Progress) Progress {
	return Progress{
		SessionID:     string(p.SessionID),
		CollectedKeys: p.CollectedKeys,
		RequiredKeys:  p.RequiredKeys,
		TargetsFound:  p.TargetsFound,
		Interactions:  p.Interactions,
		Percent:       p.Percent,
		IsCompleted:   p.Completed,
	}
}

// Submit is the response for POST /identity/submit
type Submit struct {
	Success  bool   `json:"success"`
	RecordID string `json:"recordId"`
	Existing bool   `json:"existing"`
	Message  string `json:"message"`
}

// SubmitFromResult converts a submission result
func SubmitFromResult(r *identity.SubmitResult) Submit {
	return Submit{
		Success:  true,
		RecordID: string(r.Record.ID),
		Existing: r.Existing,
		Message:  r.Message(),
	}
}

// OfflineAck acknowledges a submission the store did not receive
type OfflineAck struct {
	Success bool   `json:"success"`
	Offline bool   `json:"offline"`
	Durable bool   `json:"durable"`
	Message string `json:"message"`
}

// UpdateKey is the response for POST /identity/update-key
type UpdateKey struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	RedeemEnabled bool   `json:"redeemEnabled"`
}

// Record is the response for GET /identity/{email}
type Record struct {
	RecordID      string            `json:"recordId"`
	Email         string            `json:"email"`
	LastName      string            `json:"lastName"`
	CheckedIn     bool              `json:"checkedIn"`
	KeyStatuses   map[string]string `json:"keyStatuses"`
	RedeemEnabled bool              `json:"redeemEnabled"`
	RedeemCode    string            `json:"redeemCode,omitempty"`
}

// RecordFromModel converts a user record
func RecordFromModel(r *model.UserRecord) Record {
	keys := make(map[string]string, len(model.AllKeyFields))
	for _, f := range model.AllKeyFields {
		keys[string(f)] = string(r.KeyStatus(f))
	}
	return Record{
		RecordID:      string(r.ID),
		Email:         r.Email,
		LastName:      r.LastName,
		CheckedIn:     r.CheckIn == model.CheckedIn,
		KeyStatuses:   keys,
		RedeemEnabled: r.RedeemEnabled,
		RedeemCode:    r.RedeemCode,
	}
}

// Redeem is the response for POST /identity/redeem
type Redeem struct {
	Success    bool   `json:"success"`
	RedeemCode string `json:"redeemCode"`
}

// Features lists client feature toggles
type Features struct {
	DataSubmission bool `json:"dataSubmission"`
}

// Config is the response for GET /config
type Config struct {
	Mission  string   `json:"mission"`
	Features Features `json:"features"`
}

// Health is the response for GET /health
type Health struct {
	Status  string `json:"status"`
	Store   string `json:"store"`
	Breaker string `json:"breaker"`
}

// Stats is the response for GET /admin/stats
type Stats struct {
	ActiveSessions    int `json:"activeSessions"`
	CompletedSessions int `json:"completedSessions"`
	TotalSessions     int `json:"totalSessions"`
}

// StatsFromRegistry converts session stats
func StatsFromRegistry(s session.Stats) Stats {
	return Stats{
		ActiveSessions:    s.Active,
		CompletedSessions: s.Completed,
		TotalSessions:     s.Total,
	}
}
