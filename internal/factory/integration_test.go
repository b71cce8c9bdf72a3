package factory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/keyquest/internal/config"
	"github.com/mcoot/keyquest/internal/model"
	"github.com/mcoot/keyquest/internal/storage"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

// Test: Check-in, key collection and redemption from first visit to code issue
func (s *IntegrationSuite) TestCompleteCheckInFlow() {
	// Step 1: First submission creates the record
	first, err := s.app.Identity.Submit(s.ctx, "Ada@Example.com", "Lovelace")
	s.Require().NoError(err)
	s.False(first.Existing)
	s.Equal(model.CheckedIn, first.Record.CheckIn)

	// Step 2: Resubmission is recognised
	again, err := s.app.Identity.Submit(s.ctx, "ada@example.com", "LOVELACE")
	s.Require().NoError(err)
	s.True(again.Existing)
	s.Equal(first.Record.ID, again.Record.ID)

	// Step 3: Redeem is refused until the keys are in
	_, err = s.app.Identity.IssueRedeemCode(s.ctx, "ada@example.com")
	s.ErrorIs(err, model.ErrRedeemNotEnabled)

	// Step 4: Scan the three redeem keys
	for _, key := range []string{"key1", "key2", "key3"} {
		_, err := s.app.Identity.UpdateKey(s.ctx, first.Record.ID, key, "scanned")
		s.Require().NoError(err)
	}

	rec, err := s.app.Identity.Lookup(s.ctx, "ada@example.com")
	s.Require().NoError(err)
	s.True(rec.RedeemEnabled)
	s.Equal(model.KeyNotScanned, rec.KeyStatus(model.Key4))

	// Step 5: Issue the code, twice
	code, err := s.app.Identity.IssueRedeemCode(s.ctx, "ada@example.com")
	s.Require().NoError(err)
	s.NotEmpty(code)

	again2, err := s.app.Identity.IssueRedeemCode(s.ctx, "ada@example.com")
	s.Require().NoError(err)
	s.Equal(code, again2)
	s.Equal(1, s.app.MockTable.UpdatesTo(storage.ColRedeemCode))
}

// Test: Concurrent first submissions for one email create a single record
func (s *IntegrationSuite) TestConcurrentSubmissionsCreateOneRecord() {
	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.app.Identity.Submit(s.ctx, "grace@example.com", "Hopper")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		s.NoError(err)
	}
	s.Equal(1, s.app.Memory.Len())
	s.Equal(1, s.app.MockTable.Calls(storage.OpAppend))
	s.Equal(0, s.app.Locks.Len())
}

// Test: Rate limiting is absorbed by the retry policy
func (s *IntegrationSuite) TestRateLimitedStoreRecovers() {
	s.app.MockTable.Fail(storage.OpScan, storage.ErrRateLimited)

	result, err := s.app.Identity.Submit(s.ctx, "alan@example.com", "Turing")
	s.Require().NoError(err)
	s.False(result.Existing)
	s.Equal(s.app.Config.Retry.RateLimitWait, s.app.MockClock.TotalWait())
}

// Test: A game session runs to completion
func (s *IntegrationSuite) TestSessionFlow() {
	sess := s.app.Sessions.Create()

	for _, key := range s.app.Config.Game.RequiredKeys {
		_, err := s.app.Sessions.CollectKey(sess.ID, key, "poster", "camera")
		s.Require().NoError(err)
	}

	progress, err := s.app.Sessions.Progress(sess.ID)
	s.Require().NoError(err)
	s.True(progress.Completed)
	s.Equal(100, progress.Percent)
	s.Equal(1, s.app.Sessions.Stats().Completed)
}

func TestNewTestApp_Options(t *testing.T) {
	app := NewTestApp(func(c *config.Config) {
		c.Identity.SelfRegistration = false
	})

	_, err := app.Identity.Submit(context.Background(), "new@example.com", "Person")
	assert.ErrorIs(t, err, model.ErrUserNotRegistered)
	assert.Equal(t, 0, app.MockTable.Calls(storage.OpAppend))
}

func TestNew_MemoryStore(t *testing.T) {
	app, err := New(config.Default(), nil)
	require.NoError(t, err)
	defer func() { _ = app.Close() }()

	result, err := app.Identity.Submit(context.Background(), "ada@example.com", "Lovelace")
	require.NoError(t, err)
	assert.False(t, result.Existing)
	assert.NotNil(t, app.Router())
}

func TestNew_InvalidStore(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Type = "postgres"

	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestNew_SheetsRequiresBaseURL(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Type = config.StoreSheets

	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)
}
