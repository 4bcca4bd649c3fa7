package game

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T, seats int) (*SeatRegistry, *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	return NewSeatRegistry(seats, clock, zerolog.Nop()), clock
}

func TestAssignSeat(t *testing.T) {
	t.Parallel()
	r, _ := newRegistry(t, 3)

	seat, err := r.AssignSeat("alice", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, seat)

	_, err = r.AssignSeat("bob", 2)
	requireCode(t, err, CodeSeatOccupied)
	assert.ErrorIs(t, err, ErrSeatOccupied)

	_, err = r.AssignSeat("bob", 4)
	requireCode(t, err, CodeInvalidSeat)
	_, err = r.AssignSeat("bob", -1)
	requireCode(t, err, CodeInvalidSeat)

	seat, err = r.AssignSeat("bob", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, seat, "lowest free seat")

	seat, err = r.AssignSeat("carol", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, seat)

	_, err = r.AssignSeat("dave", 0)
	requireCode(t, err, CodeNoAvailableSeats)

	_, err = r.AssignSeat("alice", 0)
	requireCode(t, err, CodeSeatOccupied)
}

func TestLeaveSeat(t *testing.T) {
	t.Parallel()
	r, _ := newRegistry(t, 2)

	_, err := r.LeaveSeat("ghost")
	requireCode(t, err, CodePlayerNotSeated)

	_, err = r.AssignSeat("alice", 2)
	require.NoError(t, err)
	seat, err := r.LeaveSeat("alice")
	require.NoError(t, err)
	assert.Equal(t, 2, seat)
	assert.Equal(t, 0, r.SeatOf("alice"))

	seat, err = r.AssignSeat("bob", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, seat)
}

func TestReservationExpires(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r, clock := newRegistry(t, 2)

	require.NoError(t, r.ReserveSeat(1, "alice", time.Minute))
	holder, ok := r.Reservation(1)
	require.True(t, ok)
	assert.Equal(t, "alice", holder)

	_, err := r.AssignSeat("bob", 1)
	requireCode(t, err, CodeSeatOccupied)

	seat, err := r.AssignSeat("bob", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, seat, "reserved seats are skipped")

	clock.Advance(time.Minute).MustWait(ctx)

	_, ok = r.Reservation(1)
	assert.False(t, ok)
	seat, err = r.AssignSeat("carol", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, seat)
}

func TestOccupancyWinsOverExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r, clock := newRegistry(t, 2)

	require.NoError(t, r.ReserveSeat(1, "alice", time.Minute))
	clock.Advance(30 * time.Second).MustWait(ctx)

	seat, err := r.AssignSeat("alice", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, seat)

	clock.Advance(time.Minute).MustWait(ctx)
	assert.Equal(t, 1, r.SeatOf("alice"), "stale timer must not vacate the seat")

	require.Error(t, r.ReserveSeat(1, "bob", time.Minute), "cannot reserve an occupied seat")
}

func TestReservationSuperseded(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r, clock := newRegistry(t, 2)

	require.NoError(t, r.ReserveSeat(1, "alice", time.Minute))
	clock.Advance(30 * time.Second).MustWait(ctx)
	require.NoError(t, r.ReserveSeat(1, "bob", 2*time.Minute))

	// alice's original deadline passes; bob's reservation stands
	clock.Advance(time.Minute).MustWait(ctx)
	holder, ok := r.Reservation(1)
	require.True(t, ok)
	assert.Equal(t, "bob", holder)

	clock.Advance(time.Minute).MustWait(ctx)
	_, ok = r.Reservation(1)
	assert.False(t, ok)
}

func TestTurnOrderAndDealer(t *testing.T) {
	t.Parallel()
	r, _ := newRegistry(t, 6)

	players := []*Player{
		{ID: "c", Seat: 5, Active: true, Chips: 100},
		{ID: "a", Seat: 1, Active: true, Chips: 100},
		{ID: "b", Seat: 3, Active: true, Chips: 100},
	}
	ordered := r.CalculateTurnOrder(players)
	require.Len(t, ordered, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{ordered[0].ID, ordered[1].ID, ordered[2].ID})

	oldIdx, newIdx := r.MoveDealer(ordered)
	assert.Equal(t, -1, oldIdx)
	assert.Equal(t, 0, newIdx)
	assert.Equal(t, "a", r.Dealer(ordered).ID)

	r.MoveDealer(ordered)
	oldIdx, newIdx = r.MoveDealer(ordered)
	assert.Equal(t, 1, oldIdx)
	assert.Equal(t, 2, newIdx)
	_, newIdx = r.MoveDealer(ordered)
	assert.Equal(t, 0, newIdx, "wraps around")
}

func TestMoveDealerPastSeat(t *testing.T) {
	t.Parallel()
	r, _ := newRegistry(t, 6)

	players := []*Player{{ID: "b", Seat: 2}, {ID: "c", Seat: 3}, {ID: "d", Seat: 4}}
	_, idx := r.MoveDealerPast(players, 0)
	assert.Equal(t, 0, idx, "first hand starts at the lowest seat")

	// a newcomer below the button does not hold it back
	players = append([]*Player{{ID: "a", Seat: 1}}, players...)
	_, idx = r.MoveDealerPast(players, 3)
	assert.Equal(t, "d", players[idx].ID)

	_, idx = r.MoveDealerPast(players, 4)
	assert.Equal(t, "a", players[idx].ID, "wraps past the highest seat")

	// the previous dealer left; the next seat round takes it
	_, idx = r.MoveDealerPast([]*Player{{ID: "a", Seat: 1}, {ID: "d", Seat: 4}}, 2)
	assert.Equal(t, 1, idx)
}

func TestReservationExpiryNotifiesTable(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type expiry struct {
		table, holder string
		seat          int
	}
	expired := make(chan expiry, 1)
	tbl, clock := newTestTable(t, testConfig(), nil, nil, WithReservationExpired(func(tableID string, seat int, holder string) {
		expired <- expiry{tableID, holder, seat}
	}))

	require.NoError(t, tbl.ReserveSeat(2, "alice", 0))
	before := tbl.Snapshot().Version

	clock.Advance(time.Minute).MustWait(ctx)

	select {
	case e := <-expired:
		assert.Equal(t, expiry{"t1", "alice", 2}, e)
	case <-ctx.Done():
		t.Fatal("expected an expiry callback")
	}
	snap := tbl.Snapshot()
	assert.Greater(t, snap.Version, before)
	assert.Empty(t, snap.Seats[1].ReservedBy)
}

func TestGetBlindPositions(t *testing.T) {
	t.Parallel()

	t.Run("heads up dealer posts small blind", func(t *testing.T) {
		t.Parallel()
		r, _ := newRegistry(t, 6)
		players := []*Player{{ID: "a", Seat: 2}, {ID: "b", Seat: 4}}
		r.MoveDealer(players)
		sb, bb, err := r.GetBlindPositions(players)
		require.NoError(t, err)
		assert.Equal(t, "a", sb.ID)
		assert.Equal(t, "b", bb.ID)
	})

	t.Run("three handed", func(t *testing.T) {
		t.Parallel()
		r, _ := newRegistry(t, 6)
		players := []*Player{{ID: "a", Seat: 1}, {ID: "b", Seat: 2}, {ID: "c", Seat: 6}}
		r.SetDealerIndex(2)
		sb, bb, err := r.GetBlindPositions(players)
		require.NoError(t, err)
		assert.Equal(t, "a", sb.ID, "wraps past the highest seat")
		assert.Equal(t, "b", bb.ID)
	})

	t.Run("not enough players", func(t *testing.T) {
		t.Parallel()
		r, _ := newRegistry(t, 6)
		_, _, err := r.GetBlindPositions([]*Player{{ID: "a", Seat: 1}})
		requireCode(t, err, CodeNotEnoughPlayersForBlinds)
	})
}

func TestGetFirstToAct(t *testing.T) {
	t.Parallel()
	r, _ := newRegistry(t, 6)
	players := []*Player{
		{ID: "a", Seat: 1, Active: true, Chips: 100},
		{ID: "b", Seat: 2, Active: true, Chips: 100},
		{ID: "c", Seat: 3, Active: true, Chips: 100},
		{ID: "d", Seat: 4, Active: true, Chips: 100},
	}
	r.MoveDealer(players) // dealer a, sb b, bb c

	assert.Equal(t, "d", r.GetFirstToAct(players, true).ID)
	assert.Equal(t, "b", r.GetFirstToAct(players, false).ID)

	players[1].Active = false
	assert.Equal(t, "c", r.GetFirstToAct(players, false).ID, "folded players are skipped")

	players[3].AllIn = true
	assert.Equal(t, "a", r.GetFirstToAct(players, true).ID, "all-in players cannot act")

	headsUp := []*Player{
		{ID: "x", Seat: 3, Active: true, Chips: 100},
		{ID: "y", Seat: 5, Active: true, Chips: 100},
	}
	r2, _ := newRegistry(t, 6)
	r2.MoveDealer(headsUp)
	assert.Equal(t, "x", r2.GetFirstToAct(headsUp, true).ID, "heads-up dealer acts first preflop")
	assert.Equal(t, "y", r2.GetFirstToAct(headsUp, false).ID, "and last after the flop")
}

func TestGetNextPlayer(t *testing.T) {
	t.Parallel()
	r, _ := newRegistry(t, 6)
	players := []*Player{
		{ID: "a", Seat: 1, Active: true, Chips: 100},
		{ID: "b", Seat: 3, Active: true, Chips: 100},
		{ID: "c", Seat: 6, Active: true, Chips: 100},
	}

	assert.Equal(t, "b", r.GetNextPlayer("a", players).ID)
	assert.Equal(t, "a", r.GetNextPlayer("c", players).ID, "wraps")

	players[1].Active = false
	assert.Equal(t, "c", r.GetNextPlayer("a", players).ID)

	players[2].Active = false
	assert.Nil(t, r.GetNextPlayer("a", players), "one active player left")
}

func TestIsMovingPastBlinds(t *testing.T) {
	t.Parallel()
	tests := []struct {
		seat, dealer, bb int
		want             bool
	}{
		{seat: 2, dealer: 1, bb: 3, want: true},
		{seat: 3, dealer: 1, bb: 3, want: true},
		{seat: 4, dealer: 1, bb: 3, want: false},
		{seat: 1, dealer: 1, bb: 3, want: false},
		{seat: 2, dealer: 0, bb: 0, want: false},
		// button wrapping past the top seat is not detected
		{seat: 1, dealer: 5, bb: 2, want: false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, IsMovingPastBlinds(tc.seat, tc.dealer, tc.bb), "%+v", tc)
	}
}
