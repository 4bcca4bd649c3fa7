package game

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLevels() []BlindLevel {
	return []BlindLevel{
		{Level: 1, SmallBlind: 5, BigBlind: 10, Duration: 10 * time.Minute},
		{Level: 2, SmallBlind: 10, BigBlind: 20, Ante: 2, Duration: 10 * time.Minute},
		{Level: 3, SmallBlind: 25, BigBlind: 50, Ante: 5},
	}
}

func TestBlindScheduleAdvances(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := quartz.NewMock(t)
	s, err := NewBlindSchedule(testLevels(), 0, clock)
	require.NoError(t, err)

	assert.Equal(t, 1, s.CurrentLevel().Level)
	assert.Equal(t, 10*time.Minute, s.TimeRemaining())

	clock.Advance(4 * time.Minute).MustWait(ctx)
	assert.Equal(t, 6*time.Minute, s.TimeRemaining())
	assert.False(t, s.CheckForLevelIncrease())

	clock.Advance(7 * time.Minute).MustWait(ctx)
	assert.Equal(t, time.Duration(0), s.TimeRemaining())
	assert.True(t, s.CheckForLevelIncrease())
	assert.Equal(t, 2, s.CurrentLevel().Level)
	assert.Equal(t, 10*time.Minute, s.TimeRemaining(), "new level starts its own clock")
	assert.False(t, s.CheckForLevelIncrease(), "one level per check")

	clock.Advance(10 * time.Minute).MustWait(ctx)
	assert.True(t, s.CheckForLevelIncrease())
	assert.Equal(t, 3, s.CurrentLevel().Level)

	clock.Advance(time.Hour).MustWait(ctx)
	assert.False(t, s.CheckForLevelIncrease(), "last level holds")
	assert.Equal(t, time.Duration(0), s.TimeRemaining())
}

func TestBlindScheduleValidation(t *testing.T) {
	t.Parallel()
	clock := quartz.NewMock(t)

	_, err := NewBlindSchedule(nil, 0, clock)
	assert.Error(t, err)
	_, err = NewBlindSchedule([]BlindLevel{{SmallBlind: 20, BigBlind: 10}}, 0, clock)
	assert.Error(t, err)
	_, err = NewBlindSchedule(testLevels(), 3, clock)
	assert.Error(t, err)

	s, err := NewBlindSchedule(testLevels(), 2, clock)
	require.NoError(t, err)
	assert.Equal(t, 50, s.CurrentLevel().BigBlind)
}

func TestTableLevelIncreaseWaitsForHandBoundary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := testConfig()
	cfg.Blinds = testLevels()
	tbl, clock := newTestTable(t, cfg, map[string]int{"a": 1000, "b": 1000}, []string{"a", "b"})

	_, err := tbl.StartHand()
	require.NoError(t, err)
	clock.Advance(11 * time.Minute).MustWait(ctx)
	assert.False(t, tbl.CheckForLevelIncrease(), "no change mid-hand")

	mustAct(t, tbl, "a", Fold, 0)
	assert.True(t, tbl.CheckForLevelIncrease())
	assert.Equal(t, 20, tbl.BlindLevel().BigBlind)
	assert.Equal(t, 10*time.Minute, tbl.BlindTimeRemaining())

	snap, err := tbl.StartHand()
	require.NoError(t, err)
	assert.Equal(t, 20, snap.Hand.BigBlind)
	assert.Equal(t, 2, snap.Hand.Ante)
	assert.Equal(t, 34, snap.Hand.Pot)
}
