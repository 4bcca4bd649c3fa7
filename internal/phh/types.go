// Package phh exports finished hands in the Poker Hand History format,
// a TOML layout readable by pokerkit and other analysis tools.
package phh

import "time"

// HandHistory is one finished table hand as a PHH document. Every per-player
// slice is indexed from the small blind round to the button, the order PHH
// numbers players p1..pN, so index i is player p(i+1) in Actions.
type HandHistory struct {
	Variant string `toml:"variant"` // always "NT", no-limit hold'em
	HandID  string `toml:"hand"`    // "<table id>-<hand number>"

	Table     string   `toml:"table,omitempty"`
	SeatCount int      `toml:"seat_count,omitempty"`
	Seats     []int    `toml:"seats,omitempty"` // table seat numbers
	Players   []string `toml:"players,omitempty"`

	Antes             []int `toml:"antes"`
	BlindsOrStraddles []int `toml:"blinds_or_straddles"`
	MinBet            int   `toml:"min_bet"`

	StartingStacks  []int `toml:"starting_stacks"`
	FinishingStacks []int `toml:"finishing_stacks,omitempty"`
	Winnings        []int `toml:"winnings,omitempty"` // holds the refunds when aborted

	// Actions holds dealer and player actions in PHH notation, e.g.
	// "d dh p1 AhKd", "p2 cbr 30", "d db 7c8c9c".
	Actions []string `toml:"actions"`

	// Wall clock of the first blind, in UTC.
	Time     string `toml:"time,omitempty"`
	TimeZone string `toml:"time_zone,omitempty"`
	Day      int    `toml:"day,omitempty"`
	Month    int    `toml:"month,omitempty"`
	Year     int    `toml:"year,omitempty"`

	// Metadata carries table_id, hand_number and dealer_seat, plus
	// aborted=true when the hand was refunded.
	Metadata map[string]any `toml:"metadata,omitempty"`

	Timestamp time.Time `toml:"-"`
}
