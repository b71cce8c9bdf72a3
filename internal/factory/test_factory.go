package factory

import (
	"time"

	"github.com/mcoot/keyquest/internal/config"
	"github.com/mcoot/keyquest/internal/dependencies/mocks"
	"github.com/mcoot/keyquest/internal/storage/memory"
	"github.com/mcoot/keyquest/internal/testutil"
)

// TestRedeemSecret is the redeem secret used by test apps
const TestRedeemSecret = "test-redeem-secret"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	MockTable  *mocks.MockTable
	Memory     *memory.Table
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// Options adjust the default configuration before wiring.
func NewTestApp(opts ...func(*config.Config)) *TestApp {
	cfg := config.Default()
	cfg.Identity.RedeemSecret = TestRedeemSecret
	for _, opt := range opts {
		opt(cfg)
	}

	mem := memory.New()
	table := mocks.NewMockTable(mem)
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(cfg, table, mockClock, mockRandom, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		MockTable:  table,
		Memory:     mem,
	}
}
