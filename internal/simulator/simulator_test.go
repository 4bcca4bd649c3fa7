package simulator

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdemtable/internal/game"
	"github.com/lox/holdemtable/internal/randutil"
)

func TestRunConservesChips(t *testing.T) {
	t.Parallel()
	sim := New(Config{
		Tables:  8,
		Hands:   60,
		Players: 6,
		Stack:   300,
		Blinds: []game.BlindLevel{
			{Level: 1, SmallBlind: 5, BigBlind: 10},
		},
		Seed:        42,
		Parallelism: 4,
		Logger:      zerolog.Nop(),
	})

	res, err := sim.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, res.Tables)
	assert.Equal(t, 8*6*300, res.Chips)
	assert.Positive(t, res.Hands)
	assert.Positive(t, res.Actions)
	assert.Equal(t, res.Hands, res.Showdowns+res.Uncontested)
	assert.Positive(t, res.Showdowns)

	assert.Equal(t, res.Hands, res.Pots.Hands)
	assert.Equal(t, res.Showdowns, res.Pots.Showdowns)
	require.NoError(t, res.Pots.Validate())
	assert.Positive(t, res.Pots.Mean())
}

func TestRunHeadsUpWithAntes(t *testing.T) {
	t.Parallel()
	sim := New(Config{
		Tables:  4,
		Hands:   100,
		Players: 2,
		Stack:   200,
		Blinds:  []game.BlindLevel{{Level: 1, SmallBlind: 10, BigBlind: 20, Ante: 5}},
		Seed:    7,
		Logger:  zerolog.Nop(),
	})
	res, err := sim.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4*2*200, res.Chips)
	assert.LessOrEqual(t, res.EndedEarly, 4)
}

func TestRunIsDeterministic(t *testing.T) {
	t.Parallel()
	cfg := Config{Tables: 2, Hands: 30, Players: 4, Seed: 99, Logger: zerolog.Nop()}
	a, err := New(cfg).Run(context.Background())
	require.NoError(t, err)
	b, err := New(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, a.Hands, b.Hands)
	assert.Equal(t, a.Actions, b.Actions)
	assert.Equal(t, a.Showdowns, b.Showdowns)
	assert.Equal(t, a.Pots.Streets, b.Pots.Streets)
	assert.InDelta(t, a.Pots.SumBB, b.Pots.SumBB, 1e-6)
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Config{Tables: 2, Hands: 10, Logger: zerolog.Nop()}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChooseActionIsLegal(t *testing.T) {
	t.Parallel()
	rng := randutil.New(1)
	valid := []game.ValidAction{
		{Action: game.Fold},
		{Action: game.Call},
		{Action: game.Raise, MinAmount: 20, MaxAmount: 500},
		{Action: game.AllIn, MaxAmount: 500},
	}
	for i := 0; i < 500; i++ {
		action, amount := chooseAction(rng, valid)
		require.Contains(t, []game.Action{game.Fold, game.Call, game.Raise, game.AllIn}, action)
		if action == game.Raise {
			assert.GreaterOrEqual(t, amount, 20)
			assert.LessOrEqual(t, amount, 500)
		}
	}

	// a covering bet leaves only fold or all-in
	short := []game.ValidAction{{Action: game.Fold}, {Action: game.AllIn, MaxAmount: 40}}
	for i := 0; i < 50; i++ {
		action, _ := chooseAction(rng, short)
		assert.Contains(t, []game.Action{game.Fold, game.AllIn}, action)
	}
}
