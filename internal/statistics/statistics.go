// Package statistics summarises simulated hands: pot sizes in big blinds,
// how far hands get, and how often they end at showdown.
package statistics

import (
	"fmt"
	"math"
	"slices"

	"github.com/lox/holdemtable/internal/game"
)

// bigPotBB is the pot size, in big blinds, counted as a big pot.
const bigPotBB = 50

// HandResult represents the outcome of a single hand
type HandResult struct {
	PotBB    float64    // chips contested, in big blinds
	Street   game.Phase // furthest street dealt, Preflop to River
	Showdown bool
}

// Statistics accumulates hand results. The zero value is ready to use.
type Statistics struct {
	Hands  int       `json:"hands"`
	SumBB  float64   `json:"sum_bb"`
	SumBB2 float64   `json:"-"` // sum of squares for the variance
	Values []float64 `json:"-"`

	Showdowns     int     `json:"showdowns"`
	Uncontested   int     `json:"uncontested"`
	ShowdownBB    float64 `json:"showdown_bb"`
	UncontestedBB float64 `json:"uncontested_bb"`

	// Streets counts hands by the furthest street dealt: preflop, flop, turn, river.
	Streets [4]int `json:"streets"`

	MaxPotBB float64 `json:"max_pot_bb"`
	BigPots  int     `json:"big_pots"`
}

// Add incorporates a new hand result into the statistics
func (s *Statistics) Add(result HandResult) {
	bb := result.PotBB
	s.Hands++
	s.SumBB += bb
	s.SumBB2 += bb * bb
	s.Values = append(s.Values, bb)

	if result.Showdown {
		s.Showdowns++
		s.ShowdownBB += bb
	} else {
		s.Uncontested++
		s.UncontestedBB += bb
	}

	if i := int(result.Street - game.Preflop); i >= 0 && i < len(s.Streets) {
		s.Streets[i]++
	}

	s.MaxPotBB = max(s.MaxPotBB, bb)
	if bb >= bigPotBB {
		s.BigPots++
	}
}

// Merge folds o into s.
func (s *Statistics) Merge(o Statistics) {
	s.Hands += o.Hands
	s.SumBB += o.SumBB
	s.SumBB2 += o.SumBB2
	s.Values = append(s.Values, o.Values...)
	s.Showdowns += o.Showdowns
	s.Uncontested += o.Uncontested
	s.ShowdownBB += o.ShowdownBB
	s.UncontestedBB += o.UncontestedBB
	for i := range s.Streets {
		s.Streets[i] += o.Streets[i]
	}
	s.MaxPotBB = max(s.MaxPotBB, o.MaxPotBB)
	s.BigPots += o.BigPots
}

// Mean returns the average pot in big blinds
func (s *Statistics) Mean() float64 {
	if s.Hands == 0 {
		return 0
	}
	return s.SumBB / float64(s.Hands)
}

// Variance returns the sample variance of pot sizes
func (s *Statistics) Variance() float64 {
	if s.Hands < 2 {
		return 0
	}
	mean := s.Mean()
	return (s.SumBB2 - float64(s.Hands)*mean*mean) / float64(s.Hands-1)
}

// StdDev returns the sample standard deviation
func (s *Statistics) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// StdError returns the standard error of the mean
func (s *Statistics) StdError() float64 {
	if s.Hands == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Hands))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

// Median returns the median pot size
func (s *Statistics) Median() float64 {
	return s.Percentile(0.5)
}

// Percentile returns the value at the given percentile (0.0 to 1.0),
// interpolating between neighbouring values.
func (s *Statistics) Percentile(p float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := slices.Clone(s.Values)
	slices.Sort(sorted)

	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// ShowdownRate is the share of hands that reached showdown.
func (s *Statistics) ShowdownRate() float64 {
	if s.Hands == 0 {
		return 0
	}
	return float64(s.Showdowns) / float64(s.Hands)
}

// IsLedgerBalanced checks that showdown and uncontested pots add up to the total.
func (s *Statistics) IsLedgerBalanced() bool {
	return math.Abs(s.SumBB-s.ShowdownBB-s.UncontestedBB) <= 1e-6
}

// Validate performs consistency checks on the accumulated data
func (s *Statistics) Validate() error {
	if !s.IsLedgerBalanced() {
		return fmt.Errorf("ledger mismatch: SumBB=%.6f, ShowdownBB=%.6f, UncontestedBB=%.6f",
			s.SumBB, s.ShowdownBB, s.UncontestedBB)
	}
	if s.Hands <= 0 {
		return fmt.Errorf("invalid hands count: %d", s.Hands)
	}
	if len(s.Values) != s.Hands {
		return fmt.Errorf("values array length (%d) does not match hands count (%d)", len(s.Values), s.Hands)
	}
	if s.Showdowns+s.Uncontested != s.Hands {
		return fmt.Errorf("showdowns (%d) and uncontested (%d) do not add up to %d hands",
			s.Showdowns, s.Uncontested, s.Hands)
	}
	streets := 0
	for _, n := range s.Streets {
		streets += n
	}
	if streets != s.Hands {
		return fmt.Errorf("street total (%d) does not match total hands (%d)", streets, s.Hands)
	}
	return nil
}

// StreetReached reports the furthest street dealt given the board size.
func StreetReached(board int) game.Phase {
	switch {
	case board >= 5:
		return game.River
	case board == 4:
		return game.Turn
	case board >= 3:
		return game.Flop
	default:
		return game.Preflop
	}
}
