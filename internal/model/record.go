package model

import (
	"strings"
	"time"
)

// RecordID is the opaque locator of a row in the remote store.
// It is a capability handed back to clients, not a stable primary key.
type RecordID string

// CheckInStatus is the check-in marker of a user record
type CheckInStatus string

const (
	NotCheckedIn CheckInStatus = "not-checked-in"
	CheckedIn    CheckInStatus = "checked-in"
)

// KeyStatus is the scan state of a single key
type KeyStatus string

const (
	KeyNotScanned KeyStatus = "not_scanned"
	KeyScanned    KeyStatus = "scanned"
)

// ParseKeyStatus validates a client-supplied key status
func ParseKeyStatus(s string) (KeyStatus, error) {
	switch KeyStatus(strings.ToLower(strings.TrimSpace(s))) {
	case KeyScanned:
		return KeyScanned, nil
	case KeyNotScanned:
		return KeyNotScanned, nil
	}
	return "", ErrInvalidKeyStatus
}

// KeyField names one of the four key columns
type KeyField string

const (
	Key1 KeyField = "key1"
	Key2 KeyField = "key2"
	Key3 KeyField = "key3"
	Key4 KeyField = "key4"
)

// AllKeyFields lists every key column in order
var AllKeyFields = []KeyField{Key1, Key2, Key3, Key4}

// RedeemKeyFields are the keys that together unlock redemption
var RedeemKeyFields = []KeyField{Key1, Key2, Key3}

// ParseKeyField validates a client-supplied key field name
func ParseKeyField(s string) (KeyField, error) {
	f := KeyField(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range AllKeyFields {
		if k == f {
			return k, nil
		}
	}
	return "", ErrInvalidKeyField
}

// UserRecord is one registered attendee as held by the remote store
type UserRecord struct {
	ID            RecordID
	Email         string
	LastName      string
	CheckIn       CheckInStatus
	Keys          map[KeyField]KeyStatus
	RedeemEnabled bool
	RedeemCode    string
	CreatedAt     time.Time
}

// KeyStatus returns the status of a key, treating missing values as not scanned
func (r *UserRecord) KeyStatus(f KeyField) KeyStatus {
	if s, ok := r.Keys[f]; ok && s == KeyScanned {
		return KeyScanned
	}
	return KeyNotScanned
}

// RedeemEligible reports whether every redeem key has been scanned
func (r *UserRecord) RedeemEligible() bool {
	for _, f := range RedeemKeyFields {
		if r.KeyStatus(f) != KeyScanned {
			return false
		}
	}
	return true
}

// NeedsRedeemHeal reports whether the derived redeem flag lags behind the keys
func (r *UserRecord) NeedsRedeemHeal() bool {
	return r.RedeemEligible() && !r.RedeemEnabled
}

// NormalizeEmail returns the case-insensitive identity key for an email
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SameLastName compares last names case-insensitively
func SameLastName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
