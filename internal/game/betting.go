package game

import (
	"fmt"
	"strings"
)

// Phase is the stage of a hand.
type Phase int

const (
	Waiting Phase = iota
	Preflop
	Flop
	Turn
	River
	Showdown
	Finished
)

var phaseNames = [...]string{"waiting", "preflop", "flop", "turn", "river", "showdown", "finished"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	s := strings.ToLower(string(text))
	for i, name := range phaseNames {
		if name == s {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// InProgress reports whether betting can happen in this phase.
func (p Phase) InProgress() bool {
	return p >= Preflop && p <= River
}

// Action is a player decision.
type Action string

const (
	Fold  Action = "fold"
	Check Action = "check"
	Call  Action = "call"
	Bet   Action = "bet"
	Raise Action = "raise"
	AllIn Action = "allin"

	// Recorded in history only; players cannot send these.
	PostAnte       Action = "ante"
	PostSmallBlind Action = "small_blind"
	PostBigBlind   Action = "big_blind"
)

// ParseAction accepts the player-facing action names, case-insensitively.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case Fold, Check, Call, Bet, Raise, AllIn:
		return a, nil
	case "all-in", "all_in":
		return AllIn, nil
	}
	return "", newError(CodeInvalidAction, "unknown action %q", s)
}

// ValidAction describes one legal choice for the player to act. For bet and
// raise, MinAmount and MaxAmount bound the total round wager ("raise to").
type ValidAction struct {
	Action    Action `json:"action"`
	MinAmount int    `json:"min_amount,omitempty"`
	MaxAmount int    `json:"max_amount,omitempty"`
}

// validActions lists what p may do given the round's current bet and minimum
// raise. canRaise is false for a player who already acted this round when
// only an incomplete all-in raise has come in since.
func validActions(p *Player, currentBet, minRaise int, canRaise bool) []ValidAction {
	if !p.CanAct() {
		return nil
	}
	actions := []ValidAction{{Action: Fold}}
	toCall := currentBet - p.Bet
	stack := p.Bet + p.Chips

	if toCall <= 0 {
		actions = append(actions, ValidAction{Action: Check})
	} else if toCall < p.Chips {
		actions = append(actions, ValidAction{Action: Call, MinAmount: currentBet, MaxAmount: currentBet})
	}

	if !canRaise {
		if stack <= currentBet {
			actions = append(actions, ValidAction{Action: AllIn, MinAmount: stack, MaxAmount: stack})
		}
		return actions
	}

	minTarget := currentBet + minRaise
	if stack > minTarget {
		kind := Raise
		if currentBet == 0 {
			kind = Bet
		}
		actions = append(actions, ValidAction{Action: kind, MinAmount: minTarget, MaxAmount: stack})
	}
	actions = append(actions, ValidAction{Action: AllIn, MinAmount: stack, MaxAmount: stack})
	return actions
}

// wager is a validated action ready to be applied.
type wager struct {
	action Action // normalized; a call for the whole stack becomes AllIn
	chips  int    // chips moving from the stack this action
}

// validateAction checks an action without mutating anything.
func validateAction(p *Player, action Action, amount, currentBet, minRaise int, canRaise bool) (wager, error) {
	toCall := currentBet - p.Bet
	stack := p.Bet + p.Chips

	switch action {
	case Fold:
		return wager{action: Fold}, nil

	case Check:
		if toCall > 0 {
			return wager{}, newError(CodeBelowMinimumCall, "cannot check facing a bet of %d, %d to call", currentBet, toCall)
		}
		return wager{action: Check}, nil

	case Call:
		if toCall <= 0 {
			return wager{action: Check}, nil
		}
		if toCall >= p.Chips {
			return wager{action: AllIn, chips: p.Chips}, nil
		}
		return wager{action: Call, chips: toCall}, nil

	case Bet, Raise:
		if amount > stack {
			return wager{}, newError(CodeInsufficientChips, "cannot wager %d with %d available", amount, stack)
		}
		if amount == stack {
			return validateAction(p, AllIn, 0, currentBet, minRaise, canRaise)
		}
		if !canRaise {
			return wager{}, errNotReopened(currentBet)
		}
		if amount <= currentBet {
			return wager{}, newError(CodeBelowMinimumCall, "wager of %d does not exceed the current bet of %d", amount, currentBet)
		}
		if amount < currentBet+minRaise {
			return wager{}, newError(CodeBelowMinimumRaise, "minimum raise is to %d", currentBet+minRaise)
		}
		kind := Raise
		if currentBet == 0 {
			kind = Bet
		}
		return wager{action: kind, chips: amount - p.Bet}, nil

	case AllIn:
		if p.Chips <= 0 {
			return wager{}, newError(CodeInsufficientChips, "no chips left")
		}
		if !canRaise && stack > currentBet {
			return wager{}, errNotReopened(currentBet)
		}
		return wager{action: AllIn, chips: p.Chips}, nil
	}

	return wager{}, newError(CodeInvalidAction, "unknown action %q", action)
}

func errNotReopened(currentBet int) error {
	return newError(CodeBelowMinimumRaise, "betting was not reopened by a full raise, call %d or fold", currentBet)
}
