package phh

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/lox/holdemtable/internal/game"
	"github.com/lox/holdemtable/poker"
)

// ErrHandNotFinished is returned when exporting a hand that is still live.
var ErrHandNotFinished = errors.New("phh: hand is not finished")

// Encode writes the hand history to the provided writer in PHH TOML format.
func Encode(w io.Writer, hand *HandHistory) error {
	if hand == nil {
		return fmt.Errorf("phh: hand history is nil")
	}

	enc := toml.NewEncoder(w)
	enc.Indent = "\t"
	return enc.Encode(hand)
}

// EncodeToBytes encodes and returns the result as bytes.
func EncodeToBytes(hand *HandHistory) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, hand); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FormatAction converts an engine action by player index (0 based) to a
// PHH action string. raises reports whether the action lifted the street's
// highest bet; an all-in that does not is written as a call. Forced bets
// return false because PHH records them in the antes and blinds arrays.
func FormatAction(player int, action game.Action, roundTotal int, raises bool) (string, bool) {
	p := fmt.Sprintf("p%d", player+1)
	switch action {
	case game.Fold:
		return p + " f", true
	case game.Check, game.Call:
		return p + " cc", true
	case game.Bet, game.Raise, game.AllIn:
		if !raises {
			return p + " cc", true
		}
		return fmt.Sprintf("%s cbr %d", p, roundTotal), true
	case game.PostAnte, game.PostSmallBlind, game.PostBigBlind:
		return "", false
	default:
		return fmt.Sprintf("# %s %s %d", p, action, roundTotal), true
	}
}

// FromHand builds the history of a finished hand. Hole cards that are
// missing, as in a redacted snapshot, are written as "????".
func FromHand(tableName string, seatCount int, h *game.HandState) (*HandHistory, error) {
	if h == nil || h.Phase != game.Finished {
		return nil, ErrHandNotFinished
	}

	// PHH numbers players from the small blind, so the button acts last.
	players := slices.SortedFunc(slices.Values(h.Players), func(a, b *game.Player) int {
		return cmp.Compare(rotated(a.Seat, h.SmallBlindSeat), rotated(b.Seat, h.SmallBlindSeat))
	})
	index := make(map[string]int, len(players))
	for i, p := range players {
		index[p.ID] = i
	}

	n := len(players)
	hh := &HandHistory{
		Variant:           "NT",
		Table:             tableName,
		SeatCount:         seatCount,
		Seats:             make([]int, n),
		Antes:             make([]int, n),
		BlindsOrStraddles: make([]int, n),
		MinBet:            h.BigBlind,
		StartingStacks:    make([]int, n),
		FinishingStacks:   make([]int, n),
		Winnings:          make([]int, n),
		Players:           make([]string, n),
		HandID:            fmt.Sprintf("%s-%d", h.TableID, h.Number),
		Metadata: map[string]any{
			"table_id":    h.TableID,
			"hand_number": h.Number,
			"dealer_seat": h.DealerSeat,
		},
	}
	if h.Aborted {
		hh.Metadata["aborted"] = true
	}

	pot := 0
	for i, p := range players {
		hh.Seats[i] = p.Seat
		hh.Players[i] = p.ID
		pot += p.TotalBet
	}
	switch {
	case h.Aborted:
		for i, p := range players {
			hh.Winnings[i] = p.TotalBet
		}
	case len(h.Results) > 0:
		for _, r := range h.Results {
			hh.Winnings[index[r.PlayerID]] = r.WinAmount
		}
	case len(h.Winners) == 1:
		hh.Winnings[index[h.Winners[0]]] = pot
	}
	for i, p := range players {
		hh.FinishingStacks[i] = p.Chips
		hh.StartingStacks[i] = p.Chips + p.TotalBet - hh.Winnings[i]
	}

	for i, p := range players {
		hh.Actions = append(hh.Actions, fmt.Sprintf("d dh p%d %s", i+1, joinCards(p.HoleCards)))
	}

	street := game.Preflop
	highBet := 0
	for _, rec := range h.Actions {
		i, ok := index[rec.PlayerID]
		if !ok {
			continue
		}
		switch rec.Action {
		case game.PostAnte:
			hh.Antes[i] = rec.Amount
			continue
		case game.PostSmallBlind, game.PostBigBlind:
			hh.BlindsOrStraddles[i] = rec.Amount
			highBet = max(highBet, rec.RoundTotal)
			continue
		}
		for street < rec.Phase {
			street++
			hh.Actions = appendBoard(hh.Actions, street, h.Community)
			highBet = 0
		}
		raises := rec.RoundTotal > highBet
		if s, ok := FormatAction(i, rec.Action, rec.RoundTotal, raises); ok {
			hh.Actions = append(hh.Actions, s)
		}
		highBet = max(highBet, rec.RoundTotal)
	}
	if len(h.Results) > 0 {
		// all-in run outs deal the remaining streets without actions
		for street < game.River {
			street++
			hh.Actions = appendBoard(hh.Actions, street, h.Community)
		}
		for _, r := range h.Results {
			hh.Actions = append(hh.Actions, fmt.Sprintf("p%d sm %s", index[r.PlayerID]+1, joinCards(r.HoleCards)))
		}
	}

	if len(h.Actions) > 0 {
		ts := h.Actions[0].Timestamp.UTC()
		hh.Timestamp = ts
		hh.Time = ts.Format("15:04:05")
		hh.TimeZone = "UTC"
		hh.Day, hh.Month, hh.Year = ts.Day(), int(ts.Month()), ts.Year()
	}
	return hh, nil
}

func rotated(seat, first int) int {
	if seat < first {
		return seat + 1000
	}
	return seat
}

func joinCards(cards []poker.Card) string {
	if len(cards) == 0 {
		return "????"
	}
	var sb strings.Builder
	for _, c := range cards {
		sb.WriteString(c.String())
	}
	return sb.String()
}

func appendBoard(actions []string, street game.Phase, board []poker.Card) []string {
	var lo, hi int
	switch street {
	case game.Flop:
		lo, hi = 0, 3
	case game.Turn:
		lo, hi = 3, 4
	case game.River:
		lo, hi = 4, 5
	default:
		return actions
	}
	if len(board) < hi {
		return actions
	}
	return append(actions, "d db "+joinCards(board[lo:hi]))
}
