package bot

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danverbz/lpfolio/internal/extract"
)

func testRecord() *extract.Record {
	return &extract.Record{
		Balance: decimal.NullDecimal{Decimal: decimal.NewFromInt(500), Valid: true},
	}
}

func TestSessionsDefaultIdle(t *testing.T) {
	s := NewSessions(time.Minute)
	assert.Equal(t, StateIdle, s.State(42))
}

func TestSessionsInputToPreviewFlow(t *testing.T) {
	s := NewSessions(time.Minute)

	s.StartInput(42)
	assert.Equal(t, StateAwaitingPortfolio, s.State(42))

	rec := testRecord()
	s.SetPreview(42, rec)
	assert.Equal(t, StatePreviewing, s.State(42))

	pending, slot := s.Pending(42)
	assert.Same(t, rec, pending)
	assert.Zero(t, slot)
}

func TestSessionsManualBalanceRemembersSlot(t *testing.T) {
	s := NewSessions(time.Minute)
	rec := testRecord()
	s.SetPreview(42, rec)

	got := s.AwaitManualBalance(42, 7)
	require.Same(t, rec, got)
	assert.Equal(t, StateAwaitingManualBalance, s.State(42))

	pending, slot := s.Pending(42)
	assert.Same(t, rec, pending)
	assert.Equal(t, 7, slot)
}

func TestSessionsManualBalanceRequiresPreview(t *testing.T) {
	s := NewSessions(time.Minute)

	assert.Nil(t, s.AwaitManualBalance(42, 3), "no session")

	s.StartInput(42)
	assert.Nil(t, s.AwaitManualBalance(42, 3), "still capturing input")
	assert.Equal(t, StateAwaitingPortfolio, s.State(42))
}

func TestSessionsResetDiscardsPending(t *testing.T) {
	s := NewSessions(time.Minute)
	s.SetPreview(42, testRecord())

	s.Reset(42)
	assert.Equal(t, StateIdle, s.State(42))
	pending, _ := s.Pending(42)
	assert.Nil(t, pending)
}

func TestSessionsAreKeyedPerChat(t *testing.T) {
	s := NewSessions(time.Minute)
	s.StartInput(1)
	s.SetPreview(2, testRecord())

	assert.Equal(t, StateAwaitingPortfolio, s.State(1))
	assert.Equal(t, StatePreviewing, s.State(2))
	assert.Equal(t, StateIdle, s.State(3))
}

func TestSessionsExpire(t *testing.T) {
	s := NewSessions(10 * time.Millisecond)
	s.SetPreview(42, testRecord())

	time.Sleep(25 * time.Millisecond)

	assert.Equal(t, StateIdle, s.State(42))
	pending, _ := s.Pending(42)
	assert.Nil(t, pending, "expired sessions drop their record")
}
