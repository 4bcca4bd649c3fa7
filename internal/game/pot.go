package game

import (
	"slices"

	"github.com/lox/holdemtable/poker"
)

// Contribution is what one participant put into the pot over a whole hand.
type Contribution struct {
	PlayerID string `json:"player_id"`
	Amount   int    `json:"amount"`
	AllIn    bool   `json:"all_in"`
	Active   bool   `json:"active"` // false once folded
}

// SidePot is one layer of the pot and who may win it. The first pot
// returned by BuildPots is the main pot.
type SidePot struct {
	Amount   int      `json:"amount"`
	Eligible []string `json:"eligible"`
	Winners  []string `json:"winners,omitempty"`
}

// Payout is the total a player receives across every pot.
type Payout struct {
	PlayerID string `json:"player_id"`
	Amount   int    `json:"amount"`
}

// BuildPots layers the pot at each distinct contribution level of the
// players still in the hand. Chips from folded players fill every layer
// they reached but never make the folder eligible, and anything a folder
// put in above the highest live level lands in the last pot. The pot
// amounts always sum to the total contributed.
func BuildPots(contribs []Contribution) []SidePot {
	var levels []int
	total := 0
	for _, c := range contribs {
		total += c.Amount
		if c.Active && c.Amount > 0 && !slices.Contains(levels, c.Amount) {
			levels = append(levels, c.Amount)
		}
	}
	if total == 0 {
		return nil
	}
	slices.Sort(levels)

	if len(levels) == 0 {
		// nobody live contributed; the pot has no owner yet
		return []SidePot{{Amount: total}}
	}

	pots := make([]SidePot, 0, len(levels))
	prev := 0
	for _, level := range levels {
		pot := SidePot{}
		for _, c := range contribs {
			pot.Amount += max(0, min(c.Amount, level)-prev)
			if c.Active && c.Amount >= level {
				pot.Eligible = append(pot.Eligible, c.PlayerID)
			}
		}
		pots = append(pots, pot)
		prev = level
	}

	for _, c := range contribs {
		if c.Amount > prev {
			pots[len(pots)-1].Amount += c.Amount - prev
		}
	}
	return pots
}

// Distribute awards every pot to the best eligible hands. Split pots are
// shared evenly and the odd chips go one at a time to the winners in the
// order results are supplied, so callers should pass results clockwise
// from the button. Winners are recorded on each pot. The payout list has
// one entry per result, in result order, including zero payouts.
func Distribute(pots []SidePot, results []poker.HandResult) []Payout {
	won := make(map[string]int, len(results))

	for i := range pots {
		pot := &pots[i]
		if pot.Amount <= 0 {
			continue
		}

		var contenders []poker.HandResult
		for _, r := range results {
			if len(pot.Eligible) == 0 || slices.Contains(pot.Eligible, r.PlayerID) {
				contenders = append(contenders, r)
			}
		}
		if len(contenders) == 0 {
			// nobody eligible reached showdown; best remaining hand takes it
			contenders = results
		}

		winners := poker.DetermineWinners(contenders)
		if len(winners) == 0 {
			continue
		}
		pot.Winners = winners

		share := pot.Amount / len(winners)
		remainder := pot.Amount % len(winners)
		for j, id := range winners {
			amount := share
			if j < remainder {
				amount++
			}
			won[id] += amount
		}
	}

	payouts := make([]Payout, 0, len(results))
	for _, r := range results {
		payouts = append(payouts, Payout{PlayerID: r.PlayerID, Amount: won[r.PlayerID]})
	}
	return payouts
}
