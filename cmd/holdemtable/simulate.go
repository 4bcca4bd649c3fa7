package main

import (
	"fmt"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/lox/holdemtable/internal/game"
	"github.com/lox/holdemtable/internal/simulator"
)

// SimulateCmd plays random hands to exercise the engine.
type SimulateCmd struct {
	Tables      int    `default:"16" help:"Number of tables"`
	Hands       int    `default:"1000" help:"Hands per table"`
	Players     int    `default:"6" help:"Players per table"`
	Stack       int    `default:"1000" help:"Starting stack"`
	SmallBlind  int    `default:"5" help:"Small blind"`
	BigBlind    int    `default:"10" help:"Big blind"`
	Ante        int    `default:"0" help:"Ante"`
	Seed        *int64 `help:"Deterministic seed (optional)"`
	Parallelism int    `default:"0" help:"Tables played at once, 0 for all"`
	JSON        bool   `name:"json" help:"Print the result as JSON"`
}

func (c *SimulateCmd) Run(cli *CLI) error {
	logger := cli.logger()
	ctx, cancel := signalContext(logger)
	defer cancel()

	seed := time.Now().UnixNano()
	if c.Seed != nil {
		seed = *c.Seed
	}
	logger.Info().
		Int64("seed", seed).
		Int("tables", c.Tables).
		Int("hands", c.Hands).
		Int("players", c.Players).
		Msg("Starting simulation")

	sim := simulator.New(simulator.Config{
		Tables:      c.Tables,
		Hands:       c.Hands,
		Players:     c.Players,
		Stack:       c.Stack,
		Blinds:      []game.BlindLevel{{Level: 1, SmallBlind: c.SmallBlind, BigBlind: c.BigBlind, Ante: c.Ante}},
		Seed:        seed,
		Parallelism: c.Parallelism,
		Logger:      logger,
	})
	res, err := sim.Run(ctx)
	if err != nil {
		return fmt.Errorf("simulation failed (seed %d): %w", seed, err)
	}

	if c.JSON {
		return jsoniter.NewEncoder(os.Stdout).Encode(res)
	}
	fmt.Printf("tables:        %d\n", res.Tables)
	fmt.Printf("hands:         %d\n", res.Hands)
	fmt.Printf("actions:       %d\n", res.Actions)
	fmt.Printf("showdowns:     %d\n", res.Showdowns)
	fmt.Printf("uncontested:   %d\n", res.Uncontested)
	fmt.Printf("side pots:     %d\n", res.SidePotHands)
	fmt.Printf("ended early:   %d\n", res.EndedEarly)
	fmt.Printf("chips:         %d (conserved)\n", res.Chips)
	if res.Pots.Hands > 0 {
		lo, hi := res.Pots.ConfidenceInterval95()
		fmt.Printf("pot mean:      %.2f bb (95%% CI %.2f to %.2f)\n", res.Pots.Mean(), lo, hi)
		fmt.Printf("pot median:    %.2f bb, p90 %.2f bb, max %.2f bb\n", res.Pots.Median(), res.Pots.Percentile(0.9), res.Pots.MaxPotBB)
		fmt.Printf("streets:       preflop %d, flop %d, turn %d, river %d\n",
			res.Pots.Streets[0], res.Pots.Streets[1], res.Pots.Streets[2], res.Pots.Streets[3])
	}
	if secs := res.Duration.Seconds(); secs > 0 {
		fmt.Printf("hands/sec:     %.0f\n", float64(res.Hands)/secs)
	}
	return nil
}
