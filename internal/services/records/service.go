// Package records maps user records onto the remote tabular store.
//
// Every call goes through the resilience layer. Store failures that survive
// the retry budget are translated into the model's remote-store errors so
// callers never branch on backend details.
package records

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mcoot/keyquest/internal/dependencies/clock"
	"github.com/mcoot/keyquest/internal/metrics"
	"github.com/mcoot/keyquest/internal/model"
	"github.com/mcoot/keyquest/internal/resilience"
	"github.com/mcoot/keyquest/internal/storage"
)

// keyColumns maps key fields to their store columns
var keyColumns = map[model.KeyField]storage.Column{
	model.Key1: storage.ColKey1,
	model.Key2: storage.ColKey2,
	model.Key3: storage.ColKey3,
	model.Key4: storage.ColKey4,
}

// KeyColumn returns the store column holding a key's status
func KeyColumn(f model.KeyField) storage.Column {
	return keyColumns[f]
}

// Service is the record store adapter
type Service struct {
	table   storage.Table
	retrier *resilience.Retrier
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a new records Service
func New(table storage.Table, retrier *resilience.Retrier, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		table:   table,
		retrier: retrier,
		clock:   clock,
		logger:  logger,
	}
}

// FindByEmail scans the whole table for a case-insensitive email match.
// Returns model.ErrRecordNotFound if there is none.
func (s *Service) FindByEmail(ctx context.Context, email string) (*model.UserRecord, error) {
	rows, err := resilience.Call(ctx, s.retrier, storage.OpScan, s.table.Scan)
	if err != nil {
		return nil, translate(err)
	}

	row, ok := s.match(rows, email)
	if !ok {
		return nil, model.ErrRecordNotFound
	}
	return fromRow(row), nil
}

// match returns the first row for email, logging any duplicates as an
// integrity fault
func (s *Service) match(rows []storage.Row, email string) (storage.Row, bool) {
	key := model.NormalizeEmail(email)

	var found []storage.Row
	for _, row := range rows {
		if model.NormalizeEmail(row.Get(storage.ColEmail)) == key {
			found = append(found, row)
		}
	}
	if len(found) == 0 {
		return storage.Row{}, false
	}

	if len(found) > 1 {
		locators := make([]string, len(found))
		for i, r := range found {
			locators[i] = string(r.Locator)
		}
		s.logger.Error("duplicate records for email",
			slog.String("email", key),
			slog.Any("locators", locators),
		)
		metrics.DuplicateRecords.Inc()
	}
	return found[0], true
}

// Get fetches a record by its locator
func (s *Service) Get(ctx context.Context, id model.RecordID) (*model.UserRecord, error) {
	row, err := resilience.Call(ctx, s.retrier, storage.OpGet, func(ctx context.Context) (storage.Row, error) {
		return s.table.Get(ctx, storage.Locator(id))
	})
	if err != nil {
		return nil, translate(err)
	}
	return fromRow(row), nil
}

// Create appends a checked-in record with every key unscanned.
//
// A transient failure may hide an append that did land, so before each retry
// the table is rescanned and an existing row for the email is reused.
func (s *Service) Create(ctx context.Context, email, lastName string) (*model.UserRecord, error) {
	now := s.clock.Now().UTC()
	values := map[storage.Column]string{
		storage.ColEmail:      strings.TrimSpace(email),
		storage.ColLastName:   strings.TrimSpace(lastName),
		storage.ColCheckIn:    string(model.CheckedIn),
		storage.ColRedeem:     storage.False,
		storage.ColRedeemCode: "",
		storage.ColCreatedAt:  now.Format(time.RFC3339),
	}
	for _, col := range keyColumns {
		values[col] = string(model.KeyNotScanned)
	}

	var lastErr error
	loc, err := resilience.Call(ctx, s.retrier, storage.OpAppend, func(ctx context.Context) (storage.Locator, error) {
		if errors.Is(lastErr, storage.ErrTransient) {
			rows, err := s.table.Scan(ctx)
			if err != nil {
				return "", err
			}
			if row, ok := s.match(rows, email); ok {
				s.logger.Warn("append landed despite transient failure",
					slog.String("record_id", string(row.Locator)),
				)
				return row.Locator, nil
			}
		}
		loc, err := s.table.Append(ctx, values)
		lastErr = err
		return loc, err
	})
	if err != nil {
		return nil, translate(err)
	}

	metrics.RecordsCreated.Inc()
	s.logger.Info("record created", slog.String("record_id", string(loc)))

	return fromRow(storage.Row{Locator: loc, Values: values}), nil
}

// UpdateField writes a single cell
func (s *Service) UpdateField(ctx context.Context, id model.RecordID, col storage.Column, value string) error {
	return s.UpdateFields(ctx, id, map[storage.Column]string{col: value})
}

// UpdateFields writes several cells of one record in a single store request
func (s *Service) UpdateFields(ctx context.Context, id model.RecordID, values map[storage.Column]string) error {
	err := s.retrier.Do(ctx, storage.OpUpdate, func(ctx context.Context) error {
		return s.table.UpdateCells(ctx, storage.Locator(id), values)
	})
	return translate(err)
}

// BreakerState reports the circuit breaker state in front of the store
func (s *Service) BreakerState() string {
	return s.retrier.BreakerState()
}

// translate maps store and resilience errors onto model errors
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, storage.ErrRowNotFound):
		return fmt.Errorf("%w: %w", model.ErrRecordNotFound, err)
	case errors.Is(err, storage.ErrRateLimited):
		return fmt.Errorf("%w: %w", model.ErrRateLimited, err)
	case errors.Is(err, storage.ErrTransient),
		errors.Is(err, storage.ErrUnauthorized),
		errors.Is(err, resilience.ErrCircuitOpen):
		return fmt.Errorf("%w: %w", model.ErrRemoteUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", model.ErrRemoteRejected, err)
	}
}

func fromRow(row storage.Row) *model.UserRecord {
	rec := &model.UserRecord{
		ID:            model.RecordID(row.Locator),
		Email:         row.Get(storage.ColEmail),
		LastName:      row.Get(storage.ColLastName),
		CheckIn:       model.NotCheckedIn,
		Keys:          make(map[model.KeyField]model.KeyStatus, len(keyColumns)),
		RedeemEnabled: strings.EqualFold(strings.TrimSpace(row.Get(storage.ColRedeem)), storage.True),
		RedeemCode:    row.Get(storage.ColRedeemCode),
	}

	if model.CheckInStatus(strings.ToLower(strings.TrimSpace(row.Get(storage.ColCheckIn)))) == model.CheckedIn {
		rec.CheckIn = model.CheckedIn
	}

	for field, col := range keyColumns {
		status, err := model.ParseKeyStatus(row.Get(col))
		if err != nil {
			status = model.KeyNotScanned
		}
		rec.Keys[field] = status
	}

	if ts, err := time.Parse(time.RFC3339, row.Get(storage.ColCreatedAt)); err == nil {
		rec.CreatedAt = ts
	}

	return rec
}
