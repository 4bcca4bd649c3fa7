package game

import (
	rand "math/rand/v2"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
)

// TableOption configures a Table during creation.
type TableOption func(*tableOptions)

type tableOptions struct {
	clock         quartz.Clock
	rng           *rand.Rand
	logger        zerolog.Logger
	schedule      *BlindSchedule
	manualAdvance bool

	onReservationExpired func(tableID string, seat int, holder string)
}

// WithClock sets the clock used for reservations, blind levels and
// action timestamps. Tests pass a *quartz.Mock.
func WithClock(clock quartz.Clock) TableOption {
	return func(o *tableOptions) {
		o.clock = clock
	}
}

// WithRNG sets the shuffle source. The default is a crypto-seeded
// generator; tests pass randutil.New(seed) for repeatable decks.
func WithRNG(rng *rand.Rand) TableOption {
	return func(o *tableOptions) {
		o.rng = rng
	}
}

// WithLogger sets the table's logger.
func WithLogger(logger zerolog.Logger) TableOption {
	return func(o *tableOptions) {
		o.logger = logger
	}
}

// WithSchedule replaces the schedule built from the table config.
func WithSchedule(schedule *BlindSchedule) TableOption {
	return func(o *tableOptions) {
		o.schedule = schedule
	}
}

// WithManualAdvance stops the table from dealing the next street on its
// own. Once a betting round completes, nobody is to act until Advance is
// called.
func WithManualAdvance() TableOption {
	return func(o *tableOptions) {
		o.manualAdvance = true
	}
}

// WithReservationExpired registers fn to run after a seat reservation lapses
// on its timer. fn runs on the timer goroutine with no table lock held.
func WithReservationExpired(fn func(tableID string, seat int, holder string)) TableOption {
	return func(o *tableOptions) {
		o.onReservationExpired = fn
	}
}
