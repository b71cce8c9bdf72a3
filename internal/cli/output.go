package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintf(o.w, "Error: %s\n", err)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case HealthResult:
		o.printf("Status: %s\nStore: %s\nBreaker: %s\n", v.Status, v.Store, v.Breaker)
	case ConfigResult:
		o.printf("Mission: %s\nData submission: %t\n", v.Mission, v.Features.DataSubmission)
	case StatsResult:
		o.printf("Sessions: %d total, %d active, %d completed\n", v.TotalSessions, v.ActiveSessions, v.CompletedSessions)
	case SubmitResult:
		o.printSubmitResult(v)
	case RecordResult:
		o.printRecord(v)
	case UpdateKeyResult:
		o.printf("%s\nRedeem enabled: %t\n", v.Message, v.RedeemEnabled)
	case RedeemResult:
		o.printf("Redeem code: %s\n", v.RedeemCode)
	case SessionResult:
		o.printf("Session: %s\nStatus: %s\nRequired keys: %s\n", v.SessionID, v.Status, strings.Join(v.RequiredKeys, ", "))
	case ValidateResult:
		o.printf("Valid: %t\nKeys: %d/%d\nCompleted: %t\n", v.Valid, v.CollectedKeysCount, v.TotalKeys, v.IsCompleted)
	case CollectResult:
		o.printf("%s (%d/%d)\n", v.Message, v.TotalCollected, v.TotalRequired)
	case InteractionResult:
		o.printf("Interaction %s recorded at %s\n", v.InteractionID, v.Timestamp.Format(time.RFC3339))
	case ProgressResult:
		o.printProgress(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, format, args...)
}

// HealthResult response type
type HealthResult struct {
	Status  string `json:"status"`
	Store   string `json:"store"`
	Breaker string `json:"breaker"`
}

// ConfigResult response type
type ConfigResult struct {
	Mission  string `json:"mission"`
	Features struct {
		DataSubmission bool `json:"dataSubmission"`
	} `json:"features"`
}

// StatsResult response type
type StatsResult struct {
	ActiveSessions    int `json:"activeSessions"`
	CompletedSessions int `json:"completedSessions"`
	TotalSessions     int `json:"totalSessions"`
}

// SubmitResult covers both a recorded check-in and an offline acknowledgement
type SubmitResult struct {
	Success  bool   `json:"success"`
	RecordID string `json:"recordId,omitempty"`
	Existing bool   `json:"existing"`
	Message  string `json:"message"`
	Offline  bool   `json:"offline,omitempty"`
	Durable  *bool  `json:"durable,omitempty"`
}

// RecordResult response type
type RecordResult struct {
	RecordID      string            `json:"recordId"`
	Email         string            `json:"email"`
	LastName      string            `json:"lastName"`
	CheckedIn     bool              `json:"checkedIn"`
	KeyStatuses   map[string]string `json:"keyStatuses"`
	RedeemEnabled bool              `json:"redeemEnabled"`
	RedeemCode    string            `json:"redeemCode,omitempty"`
}

// UpdateKeyResult response type
type UpdateKeyResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	RedeemEnabled bool   `json:"redeemEnabled"`
}

// RedeemResult response type
type RedeemResult struct {
	Success    bool   `json:"success"`
	RedeemCode string `json:"redeemCode"`
}

// SessionResult response type
type SessionResult struct {
	SessionID    string   `json:"sessionId"`
	RequiredKeys []string `json:"requiredKeys"`
	Status       string   `json:"status"`
}

// ValidateResult response type
type ValidateResult struct {
	Valid              bool `json:"valid"`
	CollectedKeysCount int  `json:"collectedKeysCount"`
	TotalKeys          int  `json:"totalKeys"`
	IsCompleted        bool `json:"isCompleted"`
}

// CollectResult response type
type CollectResult struct {
	Success        bool   `json:"success"`
	TotalCollected int    `json:"totalCollected"`
	TotalRequired  int    `json:"totalRequired"`
	IsCompleted    bool   `json:"isCompleted"`
	Message        string `json:"message"`
}

// InteractionResult response type
type InteractionResult struct {
	Success       bool      `json:"success"`
	InteractionID string    `json:"interactionId"`
	Timestamp     time.Time `json:"timestamp"`
}

// ProgressResult response type
type ProgressResult struct {
	SessionID     string   `json:"sessionId"`
	CollectedKeys []string `json:"collectedKeys"`
	RequiredKeys  []string `json:"requiredKeys"`
	TargetsFound  int      `json:"targetsFound"`
	Interactions  int      `json:"interactions"`
	Percent       int      `json:"percent"`
	IsCompleted   bool     `json:"isCompleted"`
}

func (o *Output) printSubmitResult(s SubmitResult) {
	o.printf("%s\n", s.Message)
	if s.Offline {
		o.printf("Offline: the check-in was not stored and must be resubmitted\n")
		return
	}
	o.printf("Record: %s\n", s.RecordID)
	if s.Existing {
		o.printf("Existing: yes\n")
	}
}

func (o *Output) printRecord(r RecordResult) {
	o.printf("Record: %s\n", r.RecordID)
	o.printf("Email: %s\n", r.Email)
	o.printf("Last name: %s\n", r.LastName)
	o.printf("Checked in: %t\n", r.CheckedIn)

	keys := make([]string, 0, len(r.KeyStatuses))
	for k := range r.KeyStatuses {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	o.printf("Keys:\n")
	for _, k := range keys {
		o.printf("  - %s: %s\n", k, r.KeyStatuses[k])
	}

	o.printf("Redeem enabled: %t\n", r.RedeemEnabled)
	if r.RedeemCode != "" {
		o.printf("Redeem code: %s\n", r.RedeemCode)
	}
}

func (o *Output) printProgress(p ProgressResult) {
	o.printf("Session: %s\n", p.SessionID)
	o.printf("Progress: %d%%\n", p.Percent)
	o.printf("Collected: %s\n", strings.Join(p.CollectedKeys, ", "))
	o.printf("Required: %s\n", strings.Join(p.RequiredKeys, ", "))
	o.printf("Targets found: %d\n", p.TargetsFound)
	o.printf("Interactions: %d\n", p.Interactions)
	if p.IsCompleted {
		o.printf("All keys collected!\n")
	}
}
