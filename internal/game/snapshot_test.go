package game

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdemtable/internal/randutil"
)

func roundTrip(t *testing.T, s Snapshot) Snapshot {
	t.Helper()
	b, err := json.Marshal(s)
	require.NoError(t, err)
	var out Snapshot
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestRestoreContinuesHand(t *testing.T) {
	t.Parallel()
	tbl, clock := newTestTable(t, testConfig(), map[string]int{"a": 1000, "b": 1000, "c": 1000}, []string{"a", "b", "c"})
	_, err := tbl.StartHand()
	require.NoError(t, err)
	mustAct(t, tbl, "a", Raise, 30)

	saved := roundTrip(t, tbl.Snapshot())
	require.NotEmpty(t, saved.Hand.Deck)

	restored, err := RestoreTable(saved, WithClock(clock), WithRNG(randutil.New(99)), WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	// both tables play the same actions and must deal the same flop
	for _, tb := range []*Table{tbl, restored} {
		mustAct(t, tb, "b", Call, 0)
		mustAct(t, tb, "c", Call, 0)
	}
	orig, back := tbl.Snapshot(), restored.Snapshot()
	require.Equal(t, Flop, back.Hand.Phase)
	assert.Equal(t, orig.Hand.Community, back.Hand.Community)
	assert.Equal(t, orig.Hand.Pot, back.Hand.Pot)
	assert.Equal(t, orig.Hand.CurrentPlayer, back.Hand.CurrentPlayer)
	assert.Equal(t, chipsOf(orig), chipsOf(back))
	assert.Equal(t, orig.Version, back.Version)
	assert.Equal(t, 3000, restored.TotalChips())
}

func TestRestoreKeepsButtonAndReservations(t *testing.T) {
	t.Parallel()
	tbl, clock := newTestTable(t, testConfig(), map[string]int{"a": 1000, "b": 1000}, []string{"a", "b"})
	_, err := tbl.StartHand()
	require.NoError(t, err)
	mustAct(t, tbl, "a", Fold, 0)
	require.NoError(t, tbl.ReserveSeat(4, "dana", 0))

	restored, err := RestoreTable(roundTrip(t, tbl.Snapshot()), WithClock(clock))
	require.NoError(t, err)

	holder, ok := restored.seats.Reservation(4)
	require.True(t, ok)
	assert.Equal(t, "dana", holder)

	snap, err := restored.StartHand()
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Hand.Number)
	assert.Equal(t, 2, snap.Hand.DealerSeat, "button keeps moving after a restore")
}

func TestRestoreRejectsTamperedSnapshot(t *testing.T) {
	t.Parallel()
	tbl, _ := newTestTable(t, testConfig(), map[string]int{"a": 1000, "b": 1000}, []string{"a", "b"})
	_, err := tbl.StartHand()
	require.NoError(t, err)

	s := roundTrip(t, tbl.Snapshot())
	s.Hand.Pot += 100
	_, err = RestoreTable(s)
	requireCode(t, err, CodeChipConservation)

	s = roundTrip(t, tbl.Snapshot())
	s.Hand.Deck = append(s.Hand.Deck, s.Hand.Players[0].HoleCards[0])
	_, err = RestoreTable(s)
	assert.Error(t, err, "a dealt card cannot also be in the deck")
}

func TestPublicSnapshotRedactsHoleCards(t *testing.T) {
	t.Parallel()
	tbl, _ := newTestTable(t, testConfig(), map[string]int{"a": 1000, "b": 1000}, []string{"a", "b"})
	_, err := tbl.StartHand()
	require.NoError(t, err)

	pub := tbl.PublicSnapshot("a")
	assert.Len(t, pub.Player("a").HoleCards, 2)
	assert.Empty(t, pub.Player("b").HoleCards)
	for _, p := range pub.Hand.Players {
		if p.ID == "b" {
			assert.Empty(t, p.HoleCards)
		}
	}
	assert.Empty(t, pub.Hand.Deck)
	assert.Empty(t, pub.Hand.Burned)

	full := tbl.Snapshot()
	assert.Len(t, full.Player("b").HoleCards, 2, "redaction works on a copy")
}

func TestPublicSnapshotRevealsShowdown(t *testing.T) {
	t.Parallel()
	tbl, _ := newTestTable(t, testConfig(), map[string]int{"a": 1000, "b": 1000}, []string{"a", "b"})
	snap, err := tbl.StartHand()
	require.NoError(t, err)
	mustAct(t, tbl, "a", Call, 0)
	snap = mustAct(t, tbl, "b", Check, 0)
	for snap.Hand.Phase != Finished {
		snap = mustAct(t, tbl, snap.Hand.CurrentPlayer, Check, 0)
	}
	require.Len(t, snap.Hand.Results, 2)

	pub := tbl.PublicSnapshot("spectator")
	assert.Len(t, pub.Player("a").HoleCards, 2)
	assert.Len(t, pub.Player("b").HoleCards, 2)
}

func TestTableSerialisesConcurrentCallers(t *testing.T) {
	t.Parallel()
	tbl, _ := newTestTable(t, testConfig(), map[string]int{"a": 1000, "b": 1000, "c": 1000}, []string{"a", "b", "c"})
	_, err := tbl.StartHand()
	require.NoError(t, err)

	// every player hammers Call at once; exactly the player to act succeeds each time
	var wg sync.WaitGroup
	deadline := time.Now().Add(2 * time.Second)
	for _, id := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for time.Now().Before(deadline) && tbl.InHand() {
				if acts, err := tbl.ValidActions(id); err == nil && len(acts) > 0 {
					_, _, _ = tbl.Act(id, Call, 0)
				}
				_ = tbl.PublicSnapshot(id)
			}
		}(id)
	}
	wg.Wait()

	snap := tbl.Snapshot()
	assert.Equal(t, Finished, snap.Hand.Phase)
	assert.Equal(t, 3000, tbl.TotalChips())
}
