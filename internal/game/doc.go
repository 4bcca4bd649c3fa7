// Package game implements the rules engine for a multiplayer Texas Hold'em
// table.
//
// The main type is Table, which owns the seats, stacks and the current
// HandState of one table and serialises every operation behind a mutex.
//
// # Basic Usage
//
//	t, err := game.NewTable("main", game.DefaultTableConfig())
//	t.SitDown("alice", 0, 1000)
//	t.SitDown("bob", 0, 1000)
//	snap, err := t.StartHand()
//	// act for whoever snap.Hand.CurrentPlayer names
//	_, snap, err = t.Call(snap.Hand.CurrentPlayer)
//
// Every mutating call returns the post-mutation Snapshot. Rejected calls
// return a *game.Error with a stable Code and leave the table untouched.
//
// # Deterministic Testing
//
// Tables shuffle from a crypto-seeded generator by default. Tests inject a
// seeded one and a mock clock:
//
//	clock := quartz.NewMock(t)
//	tbl, _ := game.NewTable("t1", cfg,
//	    game.WithRNG(randutil.New(42)),
//	    game.WithClock(clock))
//
// # Architecture
//
// Table delegates to smaller pieces:
//   - SeatRegistry: seat occupancy, reservations, button and turn order
//   - HandState: one hand's betting, phase advance and showdown
//   - BuildPots and Distribute: layered side pots and payouts
//   - BlindSchedule: blind levels and their timing
//   - poker.Evaluate: best five-card hand from hole and board cards
package game
