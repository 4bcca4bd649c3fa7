package main

import (
	"fmt"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/lox/holdemtable/poker"
)

// EvalCmd evaluates hole cards against a board.
type EvalCmd struct {
	Cards []string `arg:"" help:"Two hole cards then three to five board cards"`
	Vs    []string `sep:"none" help:"Opponent hole cards, e.g. --vs 'Qc Qd'; repeatable"`
	JSON  bool     `name:"json" help:"Print the result as JSON"`
}

func (c *EvalCmd) Run() error {
	cards := make([]string, 0, len(c.Cards))
	for _, s := range c.Cards {
		if s != "--" && s != "|" {
			cards = append(cards, s)
		}
	}
	if len(cards) < 5 || len(cards) > 7 {
		return fmt.Errorf("need 2 hole cards and 3 to 5 board cards, got %d cards", len(cards))
	}
	parsed, err := poker.ParseCards(cards...)
	if err != nil {
		return err
	}
	hole, board := parsed[:2], parsed[2:]

	results := []poker.HandResult{}
	hand, err := poker.Evaluate(hole, board)
	if err != nil {
		return err
	}
	results = append(results, poker.HandResult{PlayerID: "hero", Hand: hand})

	for i, vs := range c.Vs {
		opp, err := poker.ParseCards(strings.Fields(vs)...)
		if err != nil {
			return fmt.Errorf("--vs %q: %w", vs, err)
		}
		h, err := poker.Evaluate(opp, board)
		if err != nil {
			return fmt.Errorf("--vs %q: %w", vs, err)
		}
		results = append(results, poker.HandResult{PlayerID: fmt.Sprintf("villain%d", i+1), Hand: h})
	}
	winners := poker.DetermineWinners(results)

	if c.JSON {
		return jsoniter.NewEncoder(os.Stdout).Encode(struct {
			Board   []poker.Card       `json:"board"`
			Results []poker.HandResult `json:"results"`
			Winners []string           `json:"winners"`
		}{board, results, winners})
	}

	fmt.Printf("board: %s\n", poker.FormatCards(board))
	for _, r := range results {
		fmt.Printf("%-9s %-28s %s (rank %d)\n", r.PlayerID, r.Hand.Description, poker.FormatCards(r.Hand.Cards), r.Hand.DetailedRank)
	}
	if len(results) > 1 {
		fmt.Printf("winner: %s\n", strings.Join(winners, ", "))
	}
	return nil
}
