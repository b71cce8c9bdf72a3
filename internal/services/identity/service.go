// Package identity implements check-in and key progress for user records.
//
// Every read-modify-write on a record runs under the identity lock for the
// record's normalised email, which is what keeps two concurrent submissions
// for one email from both creating a record.
package identity

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/keyquest/internal/identitylock"
	"github.com/mcoot/keyquest/internal/metrics"
	"github.com/mcoot/keyquest/internal/model"
	"github.com/mcoot/keyquest/internal/services/records"
	"github.com/mcoot/keyquest/internal/storage"
)

// Config controls registration policy and redeem codes
type Config struct {
	// SelfRegistration creates records on first submission; otherwise records
	// must be pre-populated and unknown emails are refused
	SelfRegistration bool

	// RedeemSecret keys redeem code derivation
	RedeemSecret string
}

// Outcome describes what a submission did
type Outcome string

const (
	OutcomeCreated     Outcome = "created"
	OutcomeCheckedIn   Outcome = "checked_in"
	OutcomeWelcomeBack Outcome = "welcome_back"
)

// SubmitResult is the result of a check-in submission
type SubmitResult struct {
	Record   *model.UserRecord
	Existing bool
	Outcome  Outcome
}

// Message returns a human readable description of the outcome
func (r SubmitResult) Message() string {
	switch r.Outcome {
	case OutcomeCreated:
		return "Registration successful"
	case OutcomeCheckedIn:
		return "Check-in successful"
	default:
		return "Welcome back"
	}
}

// UpdateKeyResult is the result of a key status update
type UpdateKeyResult struct {
	Record *model.UserRecord
	// Changed is false when the key already had the requested status
	Changed bool
}

// Service runs the key-progress state machine
type Service struct {
	records *records.Service
	locks   *identitylock.Locker
	cfg     Config
	logger  *slog.Logger
}

// New creates a new identity Service
func New(records *records.Service, locks *identitylock.Locker, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		records: records,
		locks:   locks,
		cfg:     cfg,
		logger:  logger,
	}
}

// Submit checks a user in, creating their record if self-registration is on
func (s *Service) Submit(ctx context.Context, email, lastName string) (*SubmitResult, error) {
	var result *SubmitResult
	err := s.locks.WithLock(ctx, model.NormalizeEmail(email), func(ctx context.Context) error {
		var err error
		result, err = s.submit(ctx, email, lastName)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) submit(ctx context.Context, email, lastName string) (*SubmitResult, error) {
	rec, err := s.records.FindByEmail(ctx, email)
	if errors.Is(err, model.ErrRecordNotFound) {
		if !s.cfg.SelfRegistration {
			metrics.CheckIns.WithLabelValues("not_registered").Inc()
			return nil, model.ErrUserNotRegistered
		}
		rec, err = s.records.Create(ctx, email, lastName)
		if err != nil {
			return nil, err
		}
		metrics.CheckIns.WithLabelValues(string(OutcomeCreated)).Inc()
		return &SubmitResult{Record: rec, Existing: false, Outcome: OutcomeCreated}, nil
	}
	if err != nil {
		return nil, err
	}

	if !model.SameLastName(rec.LastName, lastName) {
		metrics.CheckIns.WithLabelValues("conflict").Inc()
		s.logger.Warn("email submitted with a different last name",
			slog.String("record_id", string(rec.ID)),
		)
		return nil, model.ErrEmailAlreadyUsed
	}

	s.healRedeem(ctx, rec)

	if rec.CheckIn == model.CheckedIn {
		metrics.CheckIns.WithLabelValues(string(OutcomeWelcomeBack)).Inc()
		return &SubmitResult{Record: rec, Existing: true, Outcome: OutcomeWelcomeBack}, nil
	}

	if err := s.records.UpdateField(ctx, rec.ID, storage.ColCheckIn, string(model.CheckedIn)); err != nil {
		return nil, err
	}
	rec.CheckIn = model.CheckedIn
	metrics.CheckIns.WithLabelValues(string(OutcomeCheckedIn)).Inc()
	return &SubmitResult{Record: rec, Existing: true, Outcome: OutcomeCheckedIn}, nil
}

// UpdateKey sets one key's status. Completing the redeem keys sets the redeem
// flag immediately; if that write fails the next read heals it.
func (s *Service) UpdateKey(ctx context.Context, id model.RecordID, keyField, status string) (*UpdateKeyResult, error) {
	field, err := model.ParseKeyField(keyField)
	if err != nil {
		return nil, err
	}
	st, err := model.ParseKeyStatus(status)
	if err != nil {
		return nil, err
	}

	// The email is only known after a read, and the lock is taken on it
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var result *UpdateKeyResult
	err = s.locks.WithLock(ctx, lockKey(rec), func(ctx context.Context) error {
		var err error
		result, err = s.updateKey(ctx, id, field, st)
		return err
	})
	if err != nil {
		metrics.KeyScans.WithLabelValues(string(field), errorLabel(err)).Inc()
		return nil, err
	}
	metrics.KeyScans.WithLabelValues(string(field), "ok").Inc()
	return result, nil
}

func (s *Service) updateKey(ctx context.Context, id model.RecordID, field model.KeyField, status model.KeyStatus) (*UpdateKeyResult, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	current := rec.KeyStatus(field)
	if current == status {
		if status == model.KeyScanned {
			return nil, model.ErrKeyAlreadyScanned
		}
		return &UpdateKeyResult{Record: rec, Changed: false}, nil
	}

	if err := s.records.UpdateField(ctx, id, records.KeyColumn(field), string(status)); err != nil {
		return nil, err
	}
	rec.Keys[field] = status

	if rec.NeedsRedeemHeal() {
		if err := s.records.UpdateField(ctx, id, storage.ColRedeem, storage.True); err != nil {
			s.logger.Warn("eager redeem write failed",
				slog.String("record_id", string(id)),
				slog.String("error", err.Error()),
			)
		} else {
			rec.RedeemEnabled = true
			metrics.RedeemTransitions.WithLabelValues("eager").Inc()
			s.logger.Info("redeem enabled", slog.String("record_id", string(id)))
		}
	}

	return &UpdateKeyResult{Record: rec, Changed: true}, nil
}

// Lookup returns the record for email, healing a stale redeem flag
func (s *Service) Lookup(ctx context.Context, email string) (*model.UserRecord, error) {
	rec, err := s.records.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !rec.NeedsRedeemHeal() {
		return rec, nil
	}

	err = s.locks.WithLock(ctx, lockKey(rec), func(ctx context.Context) error {
		fresh, err := s.records.Get(ctx, rec.ID)
		if err != nil {
			return err
		}
		rec = fresh
		s.healRedeem(ctx, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// healRedeem writes the redeem flag if the keys imply it. The returned record
// always reports the derived flag, even when the write fails.
func (s *Service) healRedeem(ctx context.Context, rec *model.UserRecord) {
	if !rec.NeedsRedeemHeal() {
		return
	}

	if err := s.records.UpdateField(ctx, rec.ID, storage.ColRedeem, storage.True); err != nil {
		s.logger.Warn("lazy redeem heal failed",
			slog.String("record_id", string(rec.ID)),
			slog.String("error", err.Error()),
		)
	} else {
		metrics.RedeemTransitions.WithLabelValues("lazy").Inc()
		s.logger.Info("redeem flag healed", slog.String("record_id", string(rec.ID)))
	}
	rec.RedeemEnabled = true
}

// IssueRedeemCode returns the record's redeem code, issuing it on first call.
// The code and the redeem flag land in one write.
func (s *Service) IssueRedeemCode(ctx context.Context, email string) (string, error) {
	rec, err := s.records.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	var code string
	err = s.locks.WithLock(ctx, lockKey(rec), func(ctx context.Context) error {
		fresh, err := s.records.Get(ctx, rec.ID)
		if err != nil {
			return err
		}
		if !fresh.RedeemEnabled && !fresh.RedeemEligible() {
			return model.ErrRedeemNotEnabled
		}
		if fresh.RedeemCode != "" {
			code = fresh.RedeemCode
			return nil
		}

		issued, err := deriveRedeemCode(s.cfg.RedeemSecret, fresh.Email)
		if err != nil {
			return err
		}
		if err := s.records.UpdateFields(ctx, fresh.ID, map[storage.Column]string{
			storage.ColRedeem:     storage.True,
			storage.ColRedeemCode: issued,
		}); err != nil {
			return err
		}
		s.logger.Info("redeem code issued", slog.String("record_id", string(fresh.ID)))
		code = issued
		return nil
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

// lockKey returns the identity lock key for a record
func lockKey(rec *model.UserRecord) string {
	if key := model.NormalizeEmail(rec.Email); key != "" {
		return key
	}
	return "record:" + string(rec.ID)
}

func errorLabel(err error) string {
	switch {
	case errors.Is(err, model.ErrKeyAlreadyScanned):
		return "already_scanned"
	case errors.Is(err, model.ErrRecordNotFound):
		return "not_found"
	default:
		return "error"
	}
}
