package statistics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdemtable/internal/game"
)

func TestStatisticsEmpty(t *testing.T) {
	var stats Statistics
	assert.Zero(t, stats.Mean())
	assert.Zero(t, stats.Variance())
	assert.Zero(t, stats.StdDev())
	assert.Zero(t, stats.StdError())
	assert.Zero(t, stats.Median())
	assert.Zero(t, stats.Percentile(0.5))
	assert.Zero(t, stats.ShowdownRate())
	assert.Error(t, stats.Validate())
}

func TestStatisticsSingleValue(t *testing.T) {
	var stats Statistics
	stats.Add(HandResult{PotBB: 2.5, Street: game.River, Showdown: true})

	assert.Equal(t, 1, stats.Hands)
	assert.Equal(t, 2.5, stats.Mean())
	assert.Zero(t, stats.Variance())
	assert.Equal(t, 2.5, stats.Median())
	assert.Equal(t, 1, stats.Showdowns)
	assert.Equal(t, [4]int{0, 0, 0, 1}, stats.Streets)
	assert.True(t, stats.IsLedgerBalanced())
	require.NoError(t, stats.Validate())
}

func TestStatisticsMultipleValues(t *testing.T) {
	var stats Statistics
	for _, r := range []HandResult{
		{PotBB: 1.5, Street: game.Preflop},
		{PotBB: 8, Street: game.Flop, Showdown: false},
		{PotBB: 12, Street: game.River, Showdown: true},
		{PotBB: 4, Street: game.Turn, Showdown: true},
		{PotBB: 60, Street: game.River, Showdown: true},
	} {
		stats.Add(r)
	}

	assert.InDelta(t, (1.5+8+12+4+60)/5, stats.Mean(), 1e-9)
	assert.Equal(t, 8.0, stats.Median())
	assert.Equal(t, 3, stats.Showdowns)
	assert.Equal(t, 2, stats.Uncontested)
	assert.InDelta(t, 76.0, stats.ShowdownBB, 1e-9)
	assert.InDelta(t, 9.5, stats.UncontestedBB, 1e-9)
	assert.Equal(t, [4]int{1, 1, 1, 2}, stats.Streets)
	assert.Equal(t, 60.0, stats.MaxPotBB)
	assert.Equal(t, 1, stats.BigPots)
	assert.InDelta(t, 0.6, stats.ShowdownRate(), 1e-9)
	require.NoError(t, stats.Validate())
}

func TestStatisticsPercentiles(t *testing.T) {
	var stats Statistics
	for i := 1; i <= 11; i++ {
		stats.Add(HandResult{PotBB: float64(i), Street: game.Flop})
	}
	assert.Equal(t, 1.0, stats.Percentile(0))
	assert.Equal(t, 6.0, stats.Percentile(0.5))
	assert.Equal(t, 11.0, stats.Percentile(1))
	assert.InDelta(t, 3.5, stats.Percentile(0.25), 1e-9)
}

func TestStatisticsVarianceAndInterval(t *testing.T) {
	var stats Statistics
	for _, v := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		stats.Add(HandResult{PotBB: v})
	}
	assert.InDelta(t, 5.0, stats.Mean(), 1e-9)
	assert.InDelta(t, 32.0/7.0, stats.Variance(), 1e-9)
	assert.InDelta(t, math.Sqrt(32.0/7.0), stats.StdDev(), 1e-9)

	lo, hi := stats.ConfidenceInterval95()
	assert.Less(t, lo, 5.0)
	assert.Greater(t, hi, 5.0)
	assert.InDelta(t, 5.0, (lo+hi)/2, 1e-9)
}

func TestStatisticsMerge(t *testing.T) {
	var a, b, all Statistics
	results := []HandResult{
		{PotBB: 3, Street: game.Flop, Showdown: true},
		{PotBB: 1.5, Street: game.Preflop},
		{PotBB: 70, Street: game.River, Showdown: true},
		{PotBB: 9, Street: game.Turn},
	}
	for i, r := range results {
		if i%2 == 0 {
			a.Add(r)
		} else {
			b.Add(r)
		}
		all.Add(r)
	}
	a.Merge(b)

	assert.Equal(t, all.Hands, a.Hands)
	assert.InDelta(t, all.Mean(), a.Mean(), 1e-9)
	assert.InDelta(t, all.Variance(), a.Variance(), 1e-9)
	assert.Equal(t, all.Median(), a.Median())
	assert.Equal(t, all.Streets, a.Streets)
	assert.Equal(t, all.MaxPotBB, a.MaxPotBB)
	assert.Equal(t, all.BigPots, a.BigPots)
	require.NoError(t, a.Validate())
}

func TestStatisticsValidateDetectsMismatch(t *testing.T) {
	valid := func() Statistics {
		var s Statistics
		s.Add(HandResult{PotBB: 3, Street: game.Flop, Showdown: true})
		s.Add(HandResult{PotBB: 1.5, Street: game.Preflop})
		return s
	}

	tests := []struct {
		name   string
		mutate func(*Statistics)
	}{
		{"ledger", func(s *Statistics) { s.ShowdownBB += 1 }},
		{"values", func(s *Statistics) { s.Values = s.Values[:1] }},
		{"outcomes", func(s *Statistics) { s.Showdowns++ }},
		{"streets", func(s *Statistics) { s.Streets[3]++ }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := valid()
			require.NoError(t, s.Validate())
			tc.mutate(&s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestStreetReached(t *testing.T) {
	assert.Equal(t, game.Preflop, StreetReached(0))
	assert.Equal(t, game.Flop, StreetReached(3))
	assert.Equal(t, game.Turn, StreetReached(4))
	assert.Equal(t, game.River, StreetReached(5))
}
