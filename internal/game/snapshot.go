package game

import (
	"fmt"
	"slices"
	"time"

	"github.com/lox/holdemtable/poker"
)

// Snapshot is the full serialisable state of a table after a mutation.
// Persistence stores it as-is and RestoreTable rebuilds a table from it.
type Snapshot struct {
	TableID          string      `json:"table_id"`
	Version          int64       `json:"version"`
	Config           TableConfig `json:"config"`
	HandNumber       int         `json:"hand_number"`
	DealerIndex      int         `json:"dealer_index"`
	LastDealerSeat   int         `json:"last_dealer_seat"`
	LastBigBlindSeat int         `json:"last_big_blind_seat"`

	BlindLevel        BlindLevel    `json:"blind_level"`
	BlindLevelIndex   int           `json:"blind_level_index"`
	BlindLevelStarted time.Time     `json:"blind_level_started"`
	BlindTimeLeft     time.Duration `json:"blind_time_left"`

	Seats   []SeatInfo `json:"seats"`
	Players []*Player  `json:"players"` // seated players by seat number
	Hand    *HandState `json:"hand,omitempty"`
	TakenAt time.Time  `json:"taken_at"`
}

// Player returns the seated player with id, or nil.
func (s Snapshot) Player(id string) *Player {
	for _, p := range s.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Snapshot returns the full table state, hole cards and deck included.
func (t *Table) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Table) snapshotLocked() Snapshot {
	s := Snapshot{
		TableID:           t.id,
		Version:           t.version,
		Config:            t.cfg,
		HandNumber:        t.handNumber,
		DealerIndex:       t.seats.DealerIndex(),
		LastDealerSeat:    t.lastDealerSeat,
		LastBigBlindSeat:  t.lastBigBlindSeat,
		BlindLevel:        t.schedule.CurrentLevel(),
		BlindLevelIndex:   t.schedule.Index(),
		BlindLevelStarted: t.schedule.StartedAt(),
		BlindTimeLeft:     t.schedule.TimeRemaining(),
		Seats:             t.seats.Seats(),
		TakenAt:           t.clock.Now(),
	}
	s.Config.Blinds = t.schedule.Levels()

	var seated []*Player
	for _, p := range t.players {
		seated = append(seated, p)
	}
	for _, p := range t.seats.CalculateTurnOrder(seated) {
		s.Players = append(s.Players, p.clone())
	}
	if t.hand != nil {
		s.Hand = t.hand.clone()
	}
	return s
}

// PublicSnapshot is the view for one player: other players' hole cards
// are hidden until they are shown at showdown, and the deck and burn
// cards are never included.
func (t *Table) PublicSnapshot(viewer string) Snapshot {
	s := t.Snapshot()
	return s.Redact(viewer)
}

// Redact hides everything viewer should not see.
func (s Snapshot) Redact(viewer string) Snapshot {
	shown := map[string]bool{}
	if s.Hand != nil && s.Hand.Phase == Finished {
		for _, r := range s.Hand.Results {
			shown[r.PlayerID] = true
		}
	}
	hide := func(players []*Player) {
		for _, p := range players {
			if p.ID != viewer && !shown[p.ID] {
				p.HoleCards = nil
			}
		}
	}

	s.Players = clonePlayers(s.Players)
	hide(s.Players)
	if s.Hand != nil {
		h := *s.Hand
		h.Players = clonePlayers(h.Players)
		hide(h.Players)
		h.Deck = nil
		h.Burned = nil
		s.Hand = &h
	}
	return s
}

func clonePlayers(players []*Player) []*Player {
	out := make([]*Player, len(players))
	for i, p := range players {
		out[i] = p.clone()
	}
	return out
}

// RestoreTable rebuilds a table from a snapshot. The snapshot is treated
// as authoritative: seats, stacks, the button, the blind level and any
// hand in progress, including the remaining deck order, are taken as is.
func RestoreTable(s Snapshot, opts ...TableOption) (*Table, error) {
	t, err := NewTable(s.TableID, s.Config, opts...)
	if err != nil {
		return nil, err
	}

	for _, sp := range s.Players {
		p := sp.clone()
		if _, err := t.seats.AssignSeat(p.ID, p.Seat); err != nil {
			return nil, fmt.Errorf("restoring %s to seat %d: %w", p.ID, p.Seat, err)
		}
		t.players[p.ID] = p
	}

	now := t.clock.Now()
	for _, seat := range s.Seats {
		if seat.ReservedBy == "" || seat.Occupant != "" {
			continue
		}
		if ttl := seat.ReservedTo.Sub(now); ttl > 0 {
			if err := t.seats.ReserveSeat(seat.Number, seat.ReservedBy, ttl); err != nil {
				return nil, fmt.Errorf("restoring reservation on seat %d: %w", seat.Number, err)
			}
		}
	}

	t.seats.SetDealerIndex(s.DealerIndex)
	t.schedule.restore(s.BlindLevelIndex, s.BlindLevelStarted)
	t.handNumber = s.HandNumber
	t.lastDealerSeat = s.LastDealerSeat
	t.lastBigBlindSeat = s.LastBigBlindSeat
	t.version = s.Version

	if s.Hand != nil {
		h, err := t.restoreHand(s.Hand)
		if err != nil {
			return nil, err
		}
		t.hand = h
	}
	return t, nil
}

func (t *Table) restoreHand(src *HandState) (*HandState, error) {
	h := src.clone()
	h.seats = t.seats
	h.clock = t.clock
	h.logger = t.logger
	h.manualAdvance = t.manualAdvance
	if h.Acted == nil {
		h.Acted = map[string]bool{}
	}

	// participants who are still seated share the table's player value
	for i, p := range h.Players {
		if seated, ok := t.players[p.ID]; ok {
			h.Players[i] = seated
		}
	}

	if h.Phase.InProgress() {
		deck, err := poker.RestoreDeck(src.Deck)
		if err != nil {
			return nil, fmt.Errorf("restoring deck for hand %d: %w", h.Number, err)
		}
		seen := slices.Concat(h.Community, h.Burned)
		for _, p := range h.Players {
			seen = append(seen, p.HoleCards...)
		}
		for _, c := range src.Deck {
			if slices.Contains(seen, c) {
				return nil, fmt.Errorf("restoring hand %d: card %s is both dealt and in the deck", h.Number, c)
			}
		}
		h.deck = deck
	}
	h.Deck = nil

	total := h.Pot
	for _, p := range h.Players {
		total += p.Chips
	}
	if total != h.ChipTotal {
		return nil, newError(CodeChipConservation, "snapshot of hand %d holds %d chips, expected %d", h.Number, total, h.ChipTotal)
	}
	return h, nil
}
