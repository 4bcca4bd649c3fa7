package game

import (
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdemtable/internal/randutil"
	"github.com/lox/holdemtable/poker"
)

func testConfig() TableConfig {
	return TableConfig{
		MaxSeats:       6,
		MinBuyIn:       1,
		ReservationTTL: time.Minute,
		Blinds:         FixedBlinds(5, 10),
	}
}

// newTestTable builds a table on a mock clock with a seeded shuffle and
// seats the given players in order with the given stacks.
func newTestTable(t *testing.T, cfg TableConfig, stacks map[string]int, order []string, opts ...TableOption) (*Table, *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	opts = append([]TableOption{
		WithClock(clock),
		WithRNG(randutil.New(7)),
		WithLogger(zerolog.Nop()),
	}, opts...)
	tbl, err := NewTable("t1", cfg, opts...)
	require.NoError(t, err)
	for i, id := range order {
		_, err := tbl.SitDown(id, i+1, stacks[id])
		require.NoError(t, err)
	}
	return tbl, clock
}

// stackDeck makes the next hands deal cards in exactly this order.
func stackDeck(t *testing.T, tbl *Table, cards ...string) {
	t.Helper()
	parsed := poker.MustParseCards(cards...)
	tbl.newDeck = func() *poker.Deck {
		d, err := poker.RestoreDeck(parsed)
		require.NoError(t, err)
		return d
	}
}

func requireCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, CodeOf(err), "unexpected error: %v", err)
}

// mustAct applies an action and fails the test on error.
func mustAct(t *testing.T, tbl *Table, playerID string, action Action, amount int) Snapshot {
	t.Helper()
	_, snap, err := tbl.Act(playerID, action, amount)
	require.NoError(t, err, "%s %s %d", playerID, action, amount)
	return snap
}

func chipsOf(s Snapshot) map[string]int {
	out := map[string]int{}
	for _, p := range s.Players {
		out[p.ID] = p.Chips
	}
	return out
}
