package game

import (
	"github.com/lox/holdemtable/poker"
)

// Player is a seated participant and their per-hand state.
type Player struct {
	ID        string       `json:"id"`
	Seat      int          `json:"seat"`
	Chips     int          `json:"chips"`
	Bet       int          `json:"bet"`       // wagered in the current betting round
	TotalBet  int          `json:"total_bet"` // contributed to the pot this hand
	HoleCards []poker.Card `json:"hole_cards,omitempty"`

	Active     bool `json:"active"` // dealt in and not folded
	AllIn      bool `json:"all_in"`
	Dealer     bool `json:"dealer"`
	SmallBlind bool `json:"small_blind"`
	BigBlind   bool `json:"big_blind"`

	// NewToTable is set when a player sits down and cleared once they are dealt in.
	NewToTable bool   `json:"new_to_table,omitempty"`
	LastAction Action `json:"last_action,omitempty"`
}

// CanAct reports whether the player can still make betting decisions.
func (p *Player) CanAct() bool {
	return p.Active && !p.AllIn && p.Chips > 0
}

// resetForHand clears everything tied to the previous hand.
func (p *Player) resetForHand() {
	p.Bet = 0
	p.TotalBet = 0
	p.HoleCards = nil
	p.Active = false
	p.AllIn = false
	p.Dealer = false
	p.SmallBlind = false
	p.BigBlind = false
	p.LastAction = ""
}

// commit moves up to amount chips from the stack into the current bet and
// returns how many actually moved.
func (p *Player) commit(amount int) int {
	amount = min(amount, p.Chips)
	if amount <= 0 {
		return 0
	}
	p.Chips -= amount
	p.Bet += amount
	p.TotalBet += amount
	if p.Chips == 0 {
		p.AllIn = true
	}
	return amount
}

func (p *Player) clone() *Player {
	cp := *p
	if p.HoleCards != nil {
		cp.HoleCards = append([]poker.Card(nil), p.HoleCards...)
	}
	return &cp
}
