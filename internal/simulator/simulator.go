// Package simulator plays many tables of random legal poker in parallel
// and checks that no chips are created or lost along the way.
package simulator

import (
	"context"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lox/holdemtable/internal/game"
	"github.com/lox/holdemtable/internal/randutil"
	"github.com/lox/holdemtable/internal/statistics"
)

// maxStepsPerHand bounds a single hand; random play that runs longer
// means the hand state machine is stuck.
const maxStepsPerHand = 1000

// Config holds configuration for running simulations
type Config struct {
	Tables      int
	Hands       int // per table
	Players     int // per table
	Stack       int
	Blinds      []game.BlindLevel
	Seed        int64
	Parallelism int // 0 means one worker per table
	Logger      zerolog.Logger
}

// Result aggregates every simulated table.
type Result struct {
	Tables       int           `json:"tables"`
	Hands        int           `json:"hands"`
	Actions      int           `json:"actions"`
	Showdowns    int           `json:"showdowns"`
	SidePotHands int           `json:"side_pot_hands"`
	Uncontested  int           `json:"uncontested"`
	EndedEarly   int           `json:"ended_early"` // tables where all but one player busted
	Chips        int           `json:"chips"`
	Duration     time.Duration `json:"duration"`

	Pots statistics.Statistics `json:"pots"`
}

func (r *Result) add(o Result) {
	r.Tables += o.Tables
	r.Hands += o.Hands
	r.Actions += o.Actions
	r.Showdowns += o.Showdowns
	r.SidePotHands += o.SidePotHands
	r.Uncontested += o.Uncontested
	r.EndedEarly += o.EndedEarly
	r.Chips += o.Chips
	r.Pots.Merge(o.Pots)
}

// Simulator runs random-play simulations
type Simulator struct {
	config Config
}

// New creates a new simulator with the given configuration
func New(config Config) *Simulator {
	if config.Tables <= 0 {
		config.Tables = 1
	}
	if config.Players < 2 {
		config.Players = 6
	}
	if config.Stack <= 0 {
		config.Stack = 1000
	}
	if len(config.Blinds) == 0 {
		config.Blinds = game.FixedBlinds(5, 10)
	}
	return &Simulator{config: config}
}

// Run plays every table and returns the totals. The first conservation
// failure or stuck hand cancels the remaining tables.
func (s *Simulator) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	if s.config.Parallelism > 0 {
		g.SetLimit(s.config.Parallelism)
	}

	var (
		mu    sync.Mutex
		total Result
	)
	for i := 0; i < s.config.Tables; i++ {
		g.Go(func() error {
			res, err := s.playTable(ctx, i)
			if err != nil {
				return fmt.Errorf("table %d: %w", i, err)
			}
			mu.Lock()
			total.add(res)
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	total.Duration = time.Since(start)
	return total, err
}

func (s *Simulator) playTable(ctx context.Context, index int) (Result, error) {
	seed := s.config.Seed + int64(index)*7919
	id := fmt.Sprintf("sim-%d", index)
	cfg := game.TableConfig{
		MaxSeats: max(s.config.Players, 2),
		MinBuyIn: 1,
		Blinds:   s.config.Blinds,
	}
	tbl, err := game.NewTable(id, cfg,
		game.WithRNG(randutil.New(seed)),
		game.WithLogger(s.config.Logger),
	)
	if err != nil {
		return Result{}, err
	}
	for p := 1; p <= s.config.Players; p++ {
		if _, err := tbl.SitDown(fmt.Sprintf("p%d", p), p, s.config.Stack); err != nil {
			return Result{}, err
		}
	}

	chips := tbl.TotalChips()
	res := Result{Tables: 1, Chips: chips}
	rng := randutil.New(seed ^ 0x5eed)

	for h := 0; h < s.config.Hands; h++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		tbl.CheckForLevelIncrease()
		snap, err := tbl.StartHand()
		if errors.Is(err, game.ErrNotEnoughPlayers) {
			res.EndedEarly++
			break
		}
		if err != nil {
			return res, err
		}

		hand := snap.Hand.Number
		steps := 0
		for snap.Hand.Phase.InProgress() {
			if steps++; steps > maxStepsPerHand {
				return res, fmt.Errorf("hand %d did not finish after %d actions", hand, maxStepsPerHand)
			}
			playerID := snap.Hand.CurrentPlayer
			valid, err := tbl.ValidActions(playerID)
			if err != nil {
				return res, fmt.Errorf("hand %d: %w", hand, err)
			}
			action, amount := chooseAction(rng, valid)
			_, next, err := tbl.Act(playerID, action, amount)
			if err != nil {
				return res, fmt.Errorf("hand %d: %s %s %d: %w", hand, playerID, action, amount, err)
			}
			snap = next
			res.Actions++
		}

		res.Hands++
		if snap.Hand.Aborted {
			return res, fmt.Errorf("hand %d was aborted", snap.Hand.Number)
		}
		if len(snap.Hand.Results) > 0 {
			res.Showdowns++
		} else {
			res.Uncontested++
		}
		if len(snap.Hand.SidePots) > 1 {
			res.SidePotHands++
		}
		res.Pots.Add(handResult(snap.Hand))
		if got := tbl.TotalChips(); got != chips {
			return res, fmt.Errorf("hand %d: chip total changed from %d to %d", snap.Hand.Number, chips, got)
		}
	}

	s.config.Logger.Debug().
		Str("table_id", id).
		Int("hands", res.Hands).
		Int("actions", res.Actions).
		Msg("Table simulation finished")
	return res, nil
}

func handResult(h *game.HandState) statistics.HandResult {
	pot := 0
	for _, p := range h.Players {
		pot += p.TotalBet
	}
	return statistics.HandResult{
		PotBB:    float64(pot) / float64(max(h.BigBlind, 1)),
		Street:   statistics.StreetReached(len(h.Community)),
		Showdown: len(h.Results) > 0,
	}
}

// chooseAction picks a random legal action, mostly checking and calling
// so hands reach showdown often.
func chooseAction(rng *rand.Rand, valid []game.ValidAction) (game.Action, int) {
	byAction := make(map[game.Action]game.ValidAction, len(valid))
	for _, v := range valid {
		byAction[v.Action] = v
	}
	pick := func(a game.Action) (game.ValidAction, bool) {
		v, ok := byAction[a]
		return v, ok
	}

	roll := rng.IntN(100)
	switch {
	case roll < 3:
		if v, ok := pick(game.AllIn); ok {
			return v.Action, 0
		}
	case roll < 18:
		for _, a := range []game.Action{game.Bet, game.Raise} {
			if v, ok := pick(a); ok {
				amount := v.MinAmount
				if v.MaxAmount > v.MinAmount {
					amount += rng.IntN(v.MaxAmount-v.MinAmount+1) / 4
				}
				return a, amount
			}
		}
	case roll < 30:
		if _, ok := pick(game.Check); !ok {
			return game.Fold, 0
		}
	}
	if _, ok := pick(game.Check); ok {
		return game.Check, 0
	}
	if _, ok := pick(game.Call); ok {
		return game.Call, 0
	}
	// facing a bet that covers the stack: call it off or fold
	if rng.IntN(2) == 0 {
		return game.AllIn, 0
	}
	return game.Fold, 0
}
